package progress

import (
	"math"
	"testing"
	"time"

	"github.com/franckalain/nutritrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday 13 March 2024, 15:30 UTC.
var now = time.Date(2024, 3, 13, 15, 30, 0, 0, time.UTC)

func meal(consumed time.Time, calories int, protein float64) *models.MealEntry {
	return &models.MealEntry{Calories: calories, Protein: protein, ConsumedAt: consumed}
}

func TestDayWindow(t *testing.T) {
	start, end := DayWindow(now)
	assert.Equal(t, time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), end)
}

func TestWeekWindow(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{"midweek", now, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"sunday", time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC), time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"saturday", time.Date(2024, 3, 16, 8, 0, 0, 0, time.UTC), time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"across month", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), time.Date(2024, 2, 25, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := WeekWindow(tt.at)
			assert.Equal(t, tt.want, start)
			assert.Equal(t, tt.want.AddDate(0, 0, 7), end)
		})
	}
}

func TestFilter_HalfOpen(t *testing.T) {
	from, to := DayWindow(now)
	entries := []*models.MealEntry{
		meal(from, 100, 0),
		meal(to, 200, 0),
		meal(from.Add(-time.Second), 300, 0),
		meal(to.Add(-time.Second), 400, 0),
	}

	got := Filter(entries, from, to)
	require.Len(t, got, 2)
	assert.Equal(t, 100, got[0].Calories)
	assert.Equal(t, 400, got[1].Calories)
}

func TestRatio(t *testing.T) {
	tests := []struct {
		name     string
		consumed float64
		target   float64
		want     float64
	}{
		{"half", 50, 100, 0.5},
		{"over target clamps", 250, 100, 1},
		{"zero target", 50, 0, 0},
		{"negative target", 50, -10, 0},
		{"nothing consumed", 0, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Ratio(tt.consumed, tt.target), 1e-9)
		})
	}
}

func TestSummarize(t *testing.T) {
	entries := []*models.MealEntry{
		meal(now.Add(-time.Hour), 500, 20),
		meal(now.Add(-2*time.Hour), 700, 30),
		meal(now.AddDate(0, 0, -2), 900, 40),  // Monday
		meal(now.AddDate(0, 0, -4), 1000, 50), // previous Saturday
	}
	goal := &models.Goal{Calories: 2000, Protein: 40, Fat: 0, Carbs: 250}

	s := Summarize(entries, goal, now)

	assert.Equal(t, 1200, s.DayTotal.Calories)
	assert.Equal(t, 2, s.DayTotal.Entries)
	assert.InDelta(t, 50, s.DayTotal.Protein, 1e-9)
	assert.Equal(t, 2100, s.WeekTotal.Calories)
	assert.Equal(t, 3, s.WeekTotal.Entries)

	assert.InDelta(t, 0.6, s.DayRatios.Calories, 1e-9)
	assert.InDelta(t, 1, s.DayRatios.Protein, 1e-9)
	assert.Zero(t, s.DayRatios.Fat)
	assert.Zero(t, s.DayRatios.Carbs)
	assert.Same(t, goal, s.Goal)
}

func TestSummarize_NoGoal(t *testing.T) {
	s := Summarize(nil, nil, now)
	assert.Nil(t, s.Goal)
	assert.Equal(t, Totals{}, s.DayTotal)
	assert.Equal(t, Ratios{}, s.DayRatios)
	assert.False(t, math.IsNaN(s.DayRatios.Calories))
}
