// Package progress computes day and week nutrient totals for logged meals
// and compares them with the current goal.
package progress

import (
	"time"

	"github.com/franckalain/nutritrack/internal/models"
)

// Totals is the sum of a set of meal entries.
type Totals struct {
	Calories int     `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
	Entries  int     `json:"entries"`
}

// Ratios holds consumed/target fractions in [0, 1].
type Ratios struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

// Summary is what the client shows on its progress view.
type Summary struct {
	DayStart  time.Time    `json:"day_start"`
	WeekStart time.Time    `json:"week_start"`
	DayTotal  Totals       `json:"day_total"`
	WeekTotal Totals       `json:"week_total"`
	Goal      *models.Goal `json:"goal"`
	DayRatios Ratios       `json:"day_ratios"`
}

// DayWindow returns the local day containing t as [start, end).
func DayWindow(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// WeekWindow returns the Sunday-based week containing t as [start, end).
func WeekWindow(t time.Time) (time.Time, time.Time) {
	day, _ := DayWindow(t)
	start := day.AddDate(0, 0, -int(day.Weekday()))
	return start, start.AddDate(0, 0, 7)
}

// Filter keeps entries consumed in [from, to).
func Filter(entries []*models.MealEntry, from, to time.Time) []*models.MealEntry {
	out := make([]*models.MealEntry, 0, len(entries))
	for _, e := range entries {
		if e.ConsumedAt.Before(from) || !e.ConsumedAt.Before(to) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Sum adds up the nutrients of entries.
func Sum(entries []*models.MealEntry) Totals {
	var t Totals
	for _, e := range entries {
		t.Calories += e.Calories
		t.Protein += e.Protein
		t.Fat += e.Fat
		t.Carbs += e.Carbs
		t.Entries++
	}
	return t
}

// Ratio returns consumed/target clamped to [0, 1]. A missing target counts
// as no progress.
func Ratio(consumed, target float64) float64 {
	if target <= 0 || consumed <= 0 {
		return 0
	}
	r := consumed / target
	if r > 1 {
		return 1
	}
	return r
}

// Summarize builds the day and week totals around now. entries may span any
// range; only those inside the current week count. goal may be nil.
func Summarize(entries []*models.MealEntry, goal *models.Goal, now time.Time) Summary {
	dayStart, dayEnd := DayWindow(now)
	weekStart, weekEnd := WeekWindow(now)

	s := Summary{
		DayStart:  dayStart,
		WeekStart: weekStart,
		DayTotal:  Sum(Filter(entries, dayStart, dayEnd)),
		WeekTotal: Sum(Filter(entries, weekStart, weekEnd)),
		Goal:      goal,
	}

	if goal != nil {
		s.DayRatios = Ratios{
			Calories: Ratio(float64(s.DayTotal.Calories), float64(goal.Calories)),
			Protein:  Ratio(s.DayTotal.Protein, goal.Protein),
			Fat:      Ratio(s.DayTotal.Fat, goal.Fat),
			Carbs:    Ratio(s.DayTotal.Carbs, goal.Carbs),
		}
	}
	return s
}
