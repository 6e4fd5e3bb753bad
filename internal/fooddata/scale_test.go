package fooddata

import (
	"testing"

	"github.com/franckalain/nutritrack/internal/models"
	"github.com/stretchr/testify/assert"
)

func oats() models.FoodItem {
	return models.FoodItem{
		ID:                 "173904",
		Name:               "Oats",
		Description:        "Type: Standard Reference",
		Calories:           200,
		Protein:            10,
		Fat:                6.9,
		Carbs:              66.3,
		ServingDescription: "100g",
	}
}

func TestScaleToWeight(t *testing.T) {
	item := oats()
	half := ScaleToWeight(item, 50)

	assert.Equal(t, 100, half.Calories)
	assert.InDelta(t, 5.0, half.Protein, 1e-9)
	assert.InDelta(t, 3.45, half.Fat, 1e-9)
	assert.InDelta(t, 33.15, half.Carbs, 1e-9)
	assert.Equal(t, "50g", half.ServingDescription)

	assert.Equal(t, item.ID, half.ID)
	assert.Equal(t, item.Name, half.Name)
	assert.Equal(t, item.Description, half.Description)

	assert.Equal(t, oats(), item, "source item must not change")
}

func TestScaleToWeight_Linear(t *testing.T) {
	item := oats()
	for _, w := range []float64{1, 10, 37.5, 120, 999} {
		single := ScaleToWeight(item, w)
		double := ScaleToWeight(item, 2*w)
		assert.InDelta(t, 2*single.Protein, double.Protein, 1e-9, "weight %v", w)
		assert.InDelta(t, 2*single.Fat, double.Fat, 1e-9, "weight %v", w)
		assert.InDelta(t, 2*single.Carbs, double.Carbs, 1e-9, "weight %v", w)
	}
}

func TestScaleToWeight_RoundTrip(t *testing.T) {
	item := oats()
	back := ScaleToWeight(ScaleToWeight(item, 50), 100)

	assert.Equal(t, item.Calories, back.Calories)
	assert.InDelta(t, item.Protein, back.Protein, 1e-9)
	assert.InDelta(t, item.Fat, back.Fat, 1e-9)
	assert.InDelta(t, item.Carbs, back.Carbs, 1e-9)
	assert.Equal(t, "100g", back.ServingDescription)
}

func TestScaleToWeight_Basis(t *testing.T) {
	tests := []struct {
		name     string
		serving  string
		grams    float64
		calories int
		protein  float64
		serving2 string
	}{
		{"non default basis", "250g", 100, 80, 4, "100g"},
		{"fractional basis", "12.5g", 25, 400, 20, "25g"},
		{"unparseable basis", "1 cup", 50, 100, 5, "50g"},
		{"empty basis", "", 50, 100, 5, "50g"},
		{"zero basis", "0g", 50, 100, 5, "50g"},
		{"fractional target", "100g", 12.5, 25, 1.25, "12.5g"},
		{"zero target", "100g", 0, 0, 0, "0g"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := oats()
			item.ServingDescription = tt.serving

			scaled := ScaleToWeight(item, tt.grams)
			assert.Equal(t, tt.calories, scaled.Calories)
			assert.InDelta(t, tt.protein, scaled.Protein, 1e-9)
			assert.Equal(t, tt.serving2, scaled.ServingDescription)
		})
	}
}

func TestScaleToWeight_TruncatesCalories(t *testing.T) {
	item := oats()
	item.Calories = 201

	assert.Equal(t, 100, ScaleToWeight(item, 50).Calories)
	assert.Equal(t, 66, ScaleToWeight(item, 33).Calories)
}

func TestBasisGrams(t *testing.T) {
	assert.Equal(t, 100.0, BasisGrams(models.FoodItem{ServingDescription: "100g"}))
	assert.Equal(t, 30.0, BasisGrams(models.FoodItem{ServingDescription: " 30g "}))
	assert.Equal(t, 100.0, BasisGrams(models.FoodItem{ServingDescription: "NaNg"}))
	assert.Equal(t, 100.0, BasisGrams(models.FoodItem{ServingDescription: "-20g"}))
}
