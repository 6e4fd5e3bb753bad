package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/franckalain/nutritrack/internal/database"
	"github.com/franckalain/nutritrack/internal/fooddata"
	"github.com/franckalain/nutritrack/internal/models"
	"github.com/franckalain/nutritrack/internal/progress"
	"go.uber.org/zap"
)

var (
	errInvalidGrams = errors.New("grams must be a positive number")
	errMissingFood  = errors.New("either food_id or item is required")
	errInvalidItem  = errors.New("item must have a name")
	errInvalidGoal  = errors.New("goal values must not be negative")
	errFoodLookup   = errors.New("food lookup failed")
)

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type detailRequest struct {
	ID string `json:"id"`
}

type scaleRequest struct {
	Item  *models.FoodItem `json:"item"`
	Grams float64          `json:"grams"`
}

type mealRequest struct {
	FoodID     string           `json:"food_id"`
	Item       *models.FoodItem `json:"item"`
	Grams      float64          `json:"grams"`
	ConsumedAt *time.Time       `json:"consumed_at"`
}

type goalRequest struct {
	Calories int     `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

// History is the payload of the history view.
type History struct {
	Items   []*models.MealEntry `json:"items"`
	Summary progress.Summary    `json:"summary"`
}

// searchFoods never fails: lookup problems are logged and yield no results.
func (s *Server) searchFoods(ctx context.Context, query string, limit int) []models.FoodItem {
	if strings.TrimSpace(query) == "" {
		return []models.FoodItem{}
	}
	items, err := s.foods.Search(ctx, query, limit)
	if err != nil {
		s.logger.Warn("food search failed", zap.String("query", query), zap.Error(err))
		return []models.FoodItem{}
	}
	if items == nil {
		return []models.FoodItem{}
	}
	return items
}

// foodDetail returns nil when the food cannot be found or normalized.
func (s *Server) foodDetail(ctx context.Context, id string) *models.FoodItem {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	item, err := s.foods.Detail(ctx, id)
	if err != nil {
		s.logger.Warn("food detail failed", zap.String("id", id), zap.Error(err))
		return nil
	}
	return &item
}

func validGrams(g float64) bool {
	return g > 0 && !math.IsInf(g, 0) && !math.IsNaN(g)
}

func (s *Server) scaleFood(req scaleRequest) (models.FoodItem, error) {
	if req.Item == nil {
		return models.FoodItem{}, errMissingFood
	}
	if !validGrams(req.Grams) {
		return models.FoodItem{}, errInvalidGrams
	}
	return fooddata.ScaleToWeight(*req.Item, req.Grams), nil
}

// logMeal resolves the food, scales it to the eaten weight and saves it.
func (s *Server) logMeal(ctx context.Context, req mealRequest) (*models.MealEntry, error) {
	if !validGrams(req.Grams) {
		return nil, errInvalidGrams
	}

	var item models.FoodItem
	switch {
	case req.Item != nil:
		if strings.TrimSpace(req.Item.Name) == "" {
			return nil, errInvalidItem
		}
		item = *req.Item
	case strings.TrimSpace(req.FoodID) != "":
		found, err := s.foods.Detail(ctx, req.FoodID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", errFoodLookup, req.FoodID, err)
		}
		item = found
	default:
		return nil, errMissingFood
	}

	consumedAt := s.now()
	if req.ConsumedAt != nil && !req.ConsumedAt.IsZero() {
		consumedAt = *req.ConsumedAt
	}

	entry := database.NewMealEntry(item, req.Grams, consumedAt)
	if err := s.db.SaveMealEntry(ctx, entry); err != nil {
		return nil, err
	}
	s.metrics.MealLogged()
	s.logger.Info("meal logged",
		zap.String("id", entry.ID),
		zap.String("food", entry.FoodName),
		zap.Float64("grams", entry.Grams),
		zap.Int("calories", entry.Calories),
	)
	return entry, nil
}

// currentGoal returns nil when no goal has been set yet.
func (s *Server) currentGoal(ctx context.Context) (*models.Goal, error) {
	goal, err := s.db.CurrentGoal(ctx, s.now())
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return goal, err
}

func (s *Server) saveGoal(ctx context.Context, req goalRequest) (*models.Goal, error) {
	if req.Calories < 0 || req.Protein < 0 || req.Fat < 0 || req.Carbs < 0 {
		return nil, errInvalidGoal
	}
	goal := &models.Goal{
		Calories:      req.Calories,
		Protein:       req.Protein,
		Fat:           req.Fat,
		Carbs:         req.Carbs,
		EffectiveFrom: s.now(),
	}
	if err := s.db.SaveGoal(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// history returns this week's meals with day and week totals.
func (s *Server) history(ctx context.Context) (*History, error) {
	now := s.now()
	weekStart, weekEnd := progress.WeekWindow(now)

	entries, err := s.db.ListMealEntries(ctx, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}
	goal, err := s.currentGoal(ctx)
	if err != nil {
		return nil, err
	}
	return &History{
		Items:   entries,
		Summary: progress.Summarize(entries, goal, now),
	}, nil
}
