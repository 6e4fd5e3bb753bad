package fooddata

import "strings"

// Short labels for FoodData Central dataset types.
var categoryLabels = map[string]string{
	"branded":        "Branded",
	"foundation":     "Foundation",
	"sr legacy":      "Standard Reference",
	"survey (fndds)": "Survey",
	"experimental":   "Experimental",
}

// PrettyCategory maps a known dataset label to a shorter display label.
// Unknown labels are returned unchanged.
func PrettyCategory(category string) string {
	if label, ok := categoryLabels[strings.ToLower(strings.TrimSpace(category))]; ok {
		return label
	}
	return category
}
