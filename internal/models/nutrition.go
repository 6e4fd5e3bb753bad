package models

import (
	"time"
)

// DefaultServing is the weight basis reported by FoodData Central records.
const DefaultServing = "100g"

// FoodItem is the canonical food representation used by the rest of the
// application. Calories, Protein, Fat and Carbs always describe the weight
// in ServingDescription. Treat it as a value: derive new items instead of
// modifying one in place.
type FoodItem struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	Calories           int     `json:"calories"` // kcal
	Protein            float64 `json:"protein"`  // grams
	Fat                float64 `json:"fat"`      // grams
	Carbs              float64 `json:"carbs"`    // grams
	ServingDescription string  `json:"serving_description"`
}

// MealEntry is a logged consumption of a food at a given weight.
// Nutrient values are already scaled to Grams.
type MealEntry struct {
	ID         string    `json:"id"`
	FoodID     string    `json:"food_id"`
	FoodName   string    `json:"food_name"`
	Grams      float64   `json:"grams"`
	Calories   int       `json:"calories"`
	Protein    float64   `json:"protein"`
	Fat        float64   `json:"fat"`
	Carbs      float64   `json:"carbs"`
	ConsumedAt time.Time `json:"consumed_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Goal holds daily nutrient targets, effective from a point in time.
type Goal struct {
	ID            string    `json:"id"`
	Calories      int       `json:"calories"`
	Protein       float64   `json:"protein"`
	Fat           float64   `json:"fat"`
	Carbs         float64   `json:"carbs"`
	EffectiveFrom time.Time `json:"effective_from"`
	CreatedAt     time.Time `json:"created_at"`
}

// Scan statuses
const (
	ScanPending   = "pending"
	ScanCompleted = "completed"
	ScanFailed    = "failed"
)

// LabelScan represents a nutrition label scanning session
type LabelScan struct {
	ID        string    `json:"id"`
	ImageURL  string    `json:"image_url,omitempty"` // archive location, empty when not archived
	Status    string    `json:"status"`
	Result    *FoodItem `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
