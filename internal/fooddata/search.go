package fooddata

import (
	"strings"

	"github.com/franckalain/nutritrack/internal/models"
	"github.com/tidwall/gjson"
)

// NormalizeSearchRecord converts one element of a search response's "foods"
// array. It reports false when the record has no fdcId or would produce a
// blank name.
func NormalizeSearchRecord(raw []byte) (models.FoodItem, bool) {
	if !gjson.ValidBytes(raw) {
		return models.FoodItem{}, false
	}
	return normalizeSearch(gjson.ParseBytes(raw))
}

// NormalizeSearchResults normalizes every usable record of a search
// response body, preserving order. Unusable records are skipped; an
// unparseable body yields an empty slice.
func NormalizeSearchResults(body []byte) []models.FoodItem {
	items, _ := normalizeSearchResults(body)
	return items
}

// normalizeSearchResults also reports how many records were dropped.
func normalizeSearchResults(body []byte) ([]models.FoodItem, int) {
	items := []models.FoodItem{}
	if !gjson.ValidBytes(body) {
		return items, 0
	}
	foods := gjson.GetBytes(body, "foods")
	if !foods.IsArray() {
		return items, 0
	}

	dropped := 0
	for _, rec := range foods.Array() {
		item, ok := normalizeSearch(rec)
		if !ok {
			dropped++
			continue
		}
		items = append(items, item)
	}
	return items, dropped
}

// SearchStats normalizes a search response body and reports the number of
// records kept and dropped alongside the items.
func SearchStats(body []byte) (items []models.FoodItem, kept, dropped int) {
	items, dropped = normalizeSearchResults(body)
	return items, len(items), dropped
}

func normalizeSearch(rec gjson.Result) (models.FoodItem, bool) {
	if !rec.IsObject() {
		return models.FoodItem{}, false
	}

	h := readHeader(rec, false)
	if h.id == "" || strings.TrimSpace(h.name) == "" {
		return models.FoodItem{}, false
	}

	var m macros
	if list := rec.Get("foodNutrients"); list.IsArray() {
		for _, n := range list.Array() {
			if !n.IsObject() {
				continue
			}
			kind := kindByCode[nutrientCode(n)]
			if kind == kindNone {
				continue
			}
			m.set(kind, nutrientAmount(n, kind))
		}
	}

	return m.item(h.id, h.name, strings.Join(h.lines, searchSeparator)), true
}
