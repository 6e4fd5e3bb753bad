// Package fooddata turns raw FoodData Central records into models.FoodItem
// values and rescales items to other serving weights.
//
// Two record shapes are accepted: entries of a search response's "foods"
// array and single food detail documents. Both are read tolerantly with
// gjson; records that cannot be understood are dropped rather than reported
// as errors. Every function in this package is pure and safe for
// concurrent use.
package fooddata

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/franckalain/nutritrack/internal/models"
	"github.com/tidwall/gjson"
)

const (
	searchSeparator = " • "
	detailSeparator = "\n"

	// Ingredient lists and extra descriptions this long or longer are left
	// out of the summary.
	maxSummaryField = 100

	kilojoulesPerKcal = 4.184
)

// nutrientKind identifies one of the four tracked macronutrients.
type nutrientKind int

const (
	kindNone nutrientKind = iota
	kindEnergy
	kindProtein
	kindFat
	kindCarbs
)

// FoodData Central nutrient ids.
const (
	NutrientEnergy  = 1008
	NutrientProtein = 1003
	NutrientFat     = 1004
	NutrientCarbs   = 1005
)

var kindByCode = map[int64]nutrientKind{
	NutrientEnergy:  kindEnergy,
	NutrientProtein: kindProtein,
	NutrientFat:     kindFat,
	NutrientCarbs:   kindCarbs,
}

// Lower-cased name fragments used when a detail record's nutrient id is not
// one we know.
var kindByName = []struct {
	fragment string
	kind     nutrientKind
}{
	{"energy", kindEnergy},
	{"protein", kindProtein},
	{"total lipid", kindFat},
	{"carbohydrate", kindCarbs},
}

// macros accumulates the four tracked nutrient amounts.
type macros [5]float64

func (m *macros) set(k nutrientKind, v float64) {
	if k == kindNone {
		return
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	m[k] = v
}

func (m macros) get(k nutrientKind) float64 { return m[k] }

// item builds the canonical per-100g item.
func (m macros) item(id, name, description string) models.FoodItem {
	return models.FoodItem{
		ID:                 id,
		Name:               name,
		Description:        description,
		Calories:           int(m.get(kindEnergy)),
		Protein:            m.get(kindProtein),
		Fat:                m.get(kindFat),
		Carbs:              m.get(kindCarbs),
		ServingDescription: models.DefaultServing,
	}
}

// header holds the identity and summary fields shared by both record shapes.
type header struct {
	id    string
	name  string
	lines []string
}

func readHeader(rec gjson.Result, withServing bool) header {
	brand := brandOf(rec)
	h := header{
		id:   strings.TrimSpace(rec.Get("fdcId").String()),
		name: displayName(rec.Get("description").String(), brand),
	}

	if brand != "" {
		h.lines = append(h.lines, "Brand: "+brand)
	}
	if category := categoryOf(rec); category != "" {
		h.lines = append(h.lines, "Type: "+PrettyCategory(category))
	}
	if ingredients := shortField(rec.Get("ingredients").String()); ingredients != "" {
		h.lines = append(h.lines, "Ingredients: "+ingredients)
	}
	if extra := shortField(rec.Get("additionalDescriptions").String()); extra != "" {
		h.lines = append(h.lines, extra)
	}
	if withServing {
		size := rec.Get("servingSize").Float()
		unit := strings.TrimSpace(rec.Get("servingSizeUnit").String())
		if size > 0 && unit != "" {
			h.lines = append(h.lines, fmt.Sprintf("Serving Size: %s %s", formatNumber(size), unit))
		}
	}
	return h
}

func brandOf(rec gjson.Result) string {
	if b := strings.TrimSpace(rec.Get("brandName").String()); b != "" {
		return b
	}
	return strings.TrimSpace(rec.Get("brandOwner").String())
}

// categoryOf returns the dataset label, falling back to foodCategory which
// detail records carry either as a string or as {"description": ...}.
func categoryOf(rec gjson.Result) string {
	if dt := strings.TrimSpace(rec.Get("dataType").String()); dt != "" {
		return dt
	}
	fc := rec.Get("foodCategory")
	if fc.IsObject() {
		return strings.TrimSpace(fc.Get("description").String())
	}
	return strings.TrimSpace(fc.String())
}

// CleanText collapses whitespace runs, trims, and upper-cases the first
// character when it is lower-case. No other case changes are made.
func CleanText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || !unicode.IsLower(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// displayName appends the brand in parentheses unless it is blank or
// already part of the description.
func displayName(description, brand string) string {
	name := CleanText(description)
	if brand == "" || strings.Contains(strings.ToLower(name), strings.ToLower(brand)) {
		return name
	}
	return strings.TrimSpace(name + " (" + brand + ")")
}

func shortField(s string) string {
	if utf8.RuneCountInString(s) >= maxSummaryField {
		return ""
	}
	return strings.TrimSpace(s)
}

// nutrientCode reads the id from either the flat ("nutrientId") or the
// nested ("nutrient": {"id"}) encoding.
func nutrientCode(n gjson.Result) int64 {
	if v := n.Get("nutrientId"); v.Type == gjson.Number || v.Type == gjson.String {
		return v.Int()
	}
	return n.Get("nutrient.id").Int()
}

func nutrientName(n gjson.Result) string {
	if v := n.Get("nutrientName"); v.Type == gjson.String {
		return v.String()
	}
	return n.Get("nutrient.name").String()
}

// nutrientAmount reads "value" (flat) or "amount" (nested). Energy reported
// in kJ is converted to kcal.
func nutrientAmount(n gjson.Result, k nutrientKind) float64 {
	v := n.Get("value")
	if !v.Exists() || v.Type == gjson.Null {
		v = n.Get("amount")
	}
	amount := v.Float()
	if k == kindEnergy {
		unit := n.Get("unitName")
		if !unit.Exists() {
			unit = n.Get("nutrient.unitName")
		}
		if strings.EqualFold(strings.TrimSpace(unit.String()), "kJ") {
			amount /= kilojoulesPerKcal
		}
	}
	return amount
}

func kindOfName(name string) nutrientKind {
	lower := strings.ToLower(name)
	for _, n := range kindByName {
		if strings.Contains(lower, n.fragment) {
			return n.kind
		}
	}
	return kindNone
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
