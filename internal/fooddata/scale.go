package fooddata

import (
	"math"
	"strconv"
	"strings"

	"github.com/franckalain/nutritrack/internal/models"
)

const defaultBasisGrams = 100

// ScaleToWeight returns a copy of item with its nutrients recomputed for
// grams. The current basis is read from ServingDescription ("<n>g"); when it
// cannot be parsed a 100 g basis is assumed. Calories are truncated after
// scaling. The input item is not modified.
func ScaleToWeight(item models.FoodItem, grams float64) models.FoodItem {
	ratio := grams / BasisGrams(item)

	scaled := item
	scaled.Calories = int(float64(item.Calories) * ratio)
	scaled.Protein = item.Protein * ratio
	scaled.Fat = item.Fat * ratio
	scaled.Carbs = item.Carbs * ratio
	scaled.ServingDescription = formatNumber(grams) + "g"
	return scaled
}

// BasisGrams returns the serving weight an item's nutrients describe.
func BasisGrams(item models.FoodItem) float64 {
	s := strings.TrimSpace(item.ServingDescription)
	s = strings.TrimSpace(strings.TrimSuffix(s, "g"))
	basis, err := strconv.ParseFloat(s, 64)
	if err != nil || basis <= 0 || math.IsNaN(basis) || math.IsInf(basis, 0) {
		return defaultBasisGrams
	}
	return basis
}
