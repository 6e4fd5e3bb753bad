package database

import (
	"time"

	"github.com/franckalain/nutritrack/internal/fooddata"
	"github.com/franckalain/nutritrack/internal/models"
)

// NewMealEntry builds an unsaved entry for eating grams of item at the given
// time. The item's nutrients are scaled from its own serving basis.
func NewMealEntry(item models.FoodItem, grams float64, at time.Time) *models.MealEntry {
	scaled := fooddata.ScaleToWeight(item, grams)
	return &models.MealEntry{
		FoodID:     item.ID,
		FoodName:   item.Name,
		Grams:      grams,
		Calories:   scaled.Calories,
		Protein:    scaled.Protein,
		Fat:        scaled.Fat,
		Carbs:      scaled.Carbs,
		ConsumedAt: at,
	}
}
