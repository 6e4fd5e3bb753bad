package fooddata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const granolaDetail = `{
	"fdcId": 2041155,
	"description": "granola bar,  oats & honey",
	"brandName": "Trail",
	"dataType": "Branded",
	"servingSize": 40,
	"servingSizeUnit": "g",
	"foodNutrients": [
		{"nutrient": {"id": 1008, "name": "Energy", "unitName": "kcal"}, "amount": 471},
		{"nutrient": {"id": 1003, "name": "Protein", "unitName": "g"}, "amount": 10.2},
		{"nutrient": {"id": 1004, "name": "Total lipid (fat)", "unitName": "g"}, "amount": 17.6},
		{"nutrient": {"id": 1005, "name": "Carbohydrate, by difference", "unitName": "g"}, "amount": 64.7}
	]
}`

func TestNormalizeDetailRecord(t *testing.T) {
	item, ok := NormalizeDetailRecord([]byte(granolaDetail))
	require.True(t, ok)

	assert.Equal(t, "2041155", item.ID)
	assert.Equal(t, "Granola bar, oats & honey (Trail)", item.Name)
	assert.Equal(t, "Brand: Trail\nType: Branded\nServing Size: 40 g", item.Description)
	assert.Equal(t, 471, item.Calories)
	assert.InDelta(t, 10.2, item.Protein, 1e-9)
	assert.InDelta(t, 17.6, item.Fat, 1e-9)
	assert.InDelta(t, 64.7, item.Carbs, 1e-9)
	assert.Equal(t, "100g", item.ServingDescription)
}

func TestNormalizeDetailRecord_ServingLine(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"fractional size", `{"description": "Milk", "servingSize": 240.5, "servingSizeUnit": "ml"}`, "Serving Size: 240.5 ml"},
		{"zero size", `{"description": "Milk", "servingSize": 0, "servingSizeUnit": "ml"}`, ""},
		{"negative size", `{"description": "Milk", "servingSize": -5, "servingSizeUnit": "ml"}`, ""},
		{"blank unit", `{"description": "Milk", "servingSize": 240, "servingSizeUnit": " "}`, ""},
		{"missing unit", `{"description": "Milk", "servingSize": 240}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, ok := NormalizeDetailRecord([]byte(tt.raw))
			require.True(t, ok)
			assert.Equal(t, tt.want, item.Description)
		})
	}
}

func TestNormalizeDetailRecord_CategoryFallback(t *testing.T) {
	t.Run("object", func(t *testing.T) {
		item, ok := NormalizeDetailRecord([]byte(`{"description": "Milk", "foodCategory": {"description": "Dairy and Egg Products"}}`))
		require.True(t, ok)
		assert.Equal(t, "Type: Dairy and Egg Products", item.Description)
	})

	t.Run("string", func(t *testing.T) {
		item, ok := NormalizeDetailRecord([]byte(`{"description": "Milk", "foodCategory": "Dairy"}`))
		require.True(t, ok)
		assert.Equal(t, "Type: Dairy", item.Description)
	})

	t.Run("dataType preferred", func(t *testing.T) {
		item, ok := NormalizeDetailRecord([]byte(`{"description": "Milk", "dataType": "Foundation", "foodCategory": "Dairy"}`))
		require.True(t, ok)
		assert.Equal(t, "Type: Foundation", item.Description)
	})
}

func TestNormalizeDetailRecord_MissingIDAllowed(t *testing.T) {
	item, ok := NormalizeDetailRecord([]byte(`{"description": "home made soup"}`))
	require.True(t, ok)
	assert.Empty(t, item.ID)
	assert.Equal(t, "Home made soup", item.Name)
}

func TestNormalizeDetailRecord_Rejected(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"blank name", `{"fdcId": 1, "description": "   "}`},
		{"invalid json", `{"fdcId": 1,`},
		{"not an object", `"granola"`},
		{"nutrients not a list", `{"fdcId": 1, "description": "Oats", "foodNutrients": {"id": 1008}}`},
		{"nutrient entry not an object", `{"fdcId": 1, "description": "Oats", "foodNutrients": [{"nutrientId": 1008, "value": 1}, 42]}`},
		{"label nutrients not an object", `{"fdcId": 1, "description": "Oats", "labelNutrients": [1, 2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, ok := NormalizeDetailRecord([]byte(tt.raw))
			assert.False(t, ok)
			assert.Empty(t, item)
		})
	}
}

func TestNormalizeDetailRecord_LabelFillsZeros(t *testing.T) {
	raw := `{
		"fdcId": 9,
		"description": "Protein shake",
		"foodNutrients": [
			{"nutrient": {"id": 1008, "name": "Energy"}, "amount": 0},
			{"nutrient": {"id": 1003, "name": "Protein"}, "amount": 20}
		],
		"labelNutrients": {
			"calories": {"value": 120},
			"protein": {"value": 24},
			"fat": {"value": 1.5}
		}
	}`

	item, ok := NormalizeDetailRecord([]byte(raw))
	require.True(t, ok)
	assert.Equal(t, 120, item.Calories)
	assert.InDelta(t, 20, item.Protein, 1e-9)
	assert.InDelta(t, 1.5, item.Fat, 1e-9)
	assert.Zero(t, item.Carbs)
}

func TestNormalizeDetailRecord_NameMatch(t *testing.T) {
	raw := `{
		"fdcId": 10,
		"description": "Lentils",
		"foodNutrients": [
			{"nutrient": {"id": 0, "name": "PROTEIN, crude"}, "amount": 9.0},
			{"nutrient": {"name": "Carbohydrate, by summation"}, "amount": 20.1},
			{"nutrient": {"id": 0, "name": "Fiber, total dietary"}, "amount": 7.9}
		]
	}`

	item, ok := NormalizeDetailRecord([]byte(raw))
	require.True(t, ok)
	assert.InDelta(t, 9.0, item.Protein, 1e-9)
	assert.InDelta(t, 20.1, item.Carbs, 1e-9)
	assert.Zero(t, item.Fat)
}

func TestMergeByCode(t *testing.T) {
	entries := gjson.Parse(`[
		{"nutrient": {"id": 1003}, "amount": 4},
		{"nutrient": {"id": 1003}, "amount": 6},
		{"nutrient": {"id": 1005}, "amount": 0},
		{"nutrient": {"id": 2000, "name": "Protein"}, "amount": 99}
	]`).Array()

	m, found := mergeByCode(entries)
	assert.InDelta(t, 6, m.get(kindProtein), 1e-9)
	assert.True(t, found[kindProtein])
	assert.True(t, found[kindCarbs], "a zero amount still counts as found")
	assert.False(t, found[kindFat])
	assert.False(t, found[kindEnergy])
}

func TestMergeByName(t *testing.T) {
	entries := gjson.Parse(`[
		{"nutrient": {"id": 1003, "name": "Protein"}, "amount": 3},
		{"nutrient": {"id": 2000, "name": "Protein"}, "amount": 8},
		{"nutrient": {"id": 2001, "name": "Total lipid (fat)"}, "amount": 2.5},
		{"nutrient": {"id": 1062, "name": "Energy", "unitName": "kJ"}, "amount": 430}
	]`).Array()

	m, found := mergeByCode(entries)
	m = mergeByName(m, found, entries)

	assert.InDelta(t, 3, m.get(kindProtein), 1e-9, "id match takes priority over name match")
	assert.InDelta(t, 2.5, m.get(kindFat), 1e-9)
	assert.InDelta(t, 430/kilojoulesPerKcal, m.get(kindEnergy), 1e-9)
}

func TestMergeByName_ZeroCodeValue(t *testing.T) {
	raw := `{
		"fdcId": 11,
		"description": "Tomato soup",
		"foodNutrients": [
			{"nutrient": {"id": 1008, "name": "Energy"}, "amount": 0},
			{"nutrient": {"id": 2047, "name": "Energy (Atwater General Factors)"}, "amount": 43},
			{"nutrient": {"id": 1003, "name": "Protein"}, "amount": 1.2},
			{"nutrient": {"id": 2000, "name": "Protein"}, "amount": 5}
		]
	}`

	item, ok := NormalizeDetailRecord([]byte(raw))
	require.True(t, ok)
	assert.Equal(t, 43, item.Calories)
	assert.InDelta(t, 1.2, item.Protein, 1e-9)
}

func TestFillFromLabel(t *testing.T) {
	var m macros
	m.set(kindProtein, 5)

	label := gjson.Parse(`{"calories": {"value": 200}, "protein": {"value": 7}, "carbohydrates": {"value": 30}}`)
	m = fillFromLabel(m, label)

	assert.InDelta(t, 200, m.get(kindEnergy), 1e-9)
	assert.InDelta(t, 5, m.get(kindProtein), 1e-9)
	assert.InDelta(t, 30, m.get(kindCarbs), 1e-9)
	assert.Zero(t, m.get(kindFat))

	unchanged := fillFromLabel(m, gjson.Result{})
	assert.Equal(t, m, unchanged)
}

func TestNormalizeDetailRecord_KilojouleEnergy(t *testing.T) {
	raw := `{"description": "Bread", "foodNutrients": [
		{"nutrient": {"id": 1062, "name": "Energy", "unitName": "kJ"}, "amount": 430}
	]}`

	item, ok := NormalizeDetailRecord([]byte(raw))
	require.True(t, ok)
	assert.Equal(t, 102, item.Calories)
}
