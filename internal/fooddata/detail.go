package fooddata

import (
	"strings"

	"github.com/franckalain/nutritrack/internal/models"
	"github.com/tidwall/gjson"
)

// labelFields maps labelNutrients keys to the nutrient they fill.
var labelFields = []struct {
	key  string
	kind nutrientKind
}{
	{"calories", kindEnergy},
	{"protein", kindProtein},
	{"fat", kindFat},
	{"carbohydrates", kindCarbs},
}

// NormalizeDetailRecord converts a single food detail document. Unlike
// search records, a missing fdcId is tolerated. It reports false when the
// name would be blank or the document is structurally unusable; no partial
// item is ever returned.
//
// Nutrients are merged in three tiers:
//  1. primary list entries matched by nutrient id,
//  2. primary list entries with an unknown id matched by name, for
//     nutrients tier 1 did not find or found at zero,
//  3. labelNutrients, only for nutrients still at zero.
func NormalizeDetailRecord(raw []byte) (models.FoodItem, bool) {
	if !gjson.ValidBytes(raw) {
		return models.FoodItem{}, false
	}
	rec := gjson.ParseBytes(raw)
	if !rec.IsObject() {
		return models.FoodItem{}, false
	}

	entries, ok := detailEntries(rec)
	if !ok {
		return models.FoodItem{}, false
	}
	label := rec.Get("labelNutrients")
	if label.Exists() && !label.IsObject() {
		return models.FoodItem{}, false
	}

	h := readHeader(rec, true)
	if strings.TrimSpace(h.name) == "" {
		return models.FoodItem{}, false
	}

	m, found := mergeByCode(entries)
	m = mergeByName(m, found, entries)
	m = fillFromLabel(m, label)

	return m.item(h.id, h.name, strings.Join(h.lines, detailSeparator)), true
}

// detailEntries returns the foodNutrients list, rejecting anything that is
// not an array of objects.
func detailEntries(rec gjson.Result) ([]gjson.Result, bool) {
	list := rec.Get("foodNutrients")
	if !list.Exists() {
		return nil, true
	}
	if !list.IsArray() {
		return nil, false
	}
	entries := list.Array()
	for _, n := range entries {
		if !n.IsObject() {
			return nil, false
		}
	}
	return entries, true
}

// mergeByCode is tier 1. The last entry for a given id wins.
func mergeByCode(entries []gjson.Result) (macros, [5]bool) {
	var m macros
	var found [5]bool
	for _, n := range entries {
		kind := kindByCode[nutrientCode(n)]
		if kind == kindNone {
			continue
		}
		m.set(kind, nutrientAmount(n, kind))
		found[kind] = true
	}
	return m, found
}

// mergeByName is tier 2: entries whose id is unknown are matched on their
// nutrient name, but only for nutrients tier 1 did not find or left at zero.
func mergeByName(m macros, found [5]bool, entries []gjson.Result) macros {
	for k := range found {
		found[k] = found[k] && m[k] != 0
	}
	for _, n := range entries {
		if kindByCode[nutrientCode(n)] != kindNone {
			continue
		}
		kind := kindOfName(nutrientName(n))
		if kind == kindNone || found[kind] {
			continue
		}
		m.set(kind, nutrientAmount(n, kind))
	}
	return m
}

// fillFromLabel is tier 3: label values only replace zeros.
func fillFromLabel(m macros, label gjson.Result) macros {
	if !label.IsObject() {
		return m
	}
	for _, f := range labelFields {
		if m.get(f.kind) != 0 {
			continue
		}
		if v := label.Get(f.key + ".value"); v.Exists() {
			m.set(f.kind, v.Float())
		}
	}
	return m
}
