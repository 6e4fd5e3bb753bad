package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/franckalain/nutritrack/internal/database"
	"github.com/franckalain/nutritrack/internal/fdc"
	"github.com/franckalain/nutritrack/internal/progress"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	dateLayout     = "2006-01-02"
	maxRecentMeals = 500
)

// handleSearchFoods handles GET /api/foods/search?q=&limit=
func (s *Server) handleSearchFoods(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items := s.searchFoods(r.Context(), r.URL.Query().Get("q"), limit)
	s.writeJSON(w, http.StatusOK, items)
}

// handleGetFood handles GET /api/foods/{id}. Unknown foods yield null.
func (s *Server) handleGetFood(w http.ResponseWriter, r *http.Request) {
	item := s.foodDetail(r.Context(), chi.URLParam(r, "id"))
	s.writeJSON(w, http.StatusOK, item)
}

// handleScaleFood handles POST /api/foods/scale
func (s *Server) handleScaleFood(w http.ResponseWriter, r *http.Request) {
	var req scaleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := s.scaleFood(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, item)
}

// handleLogMeal handles POST /api/meals
func (s *Server) handleLogMeal(w http.ResponseWriter, r *http.Request) {
	var req mealRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := s.logMeal(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, errInvalidGrams), errors.Is(err, errMissingFood), errors.Is(err, errInvalidItem):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, fdc.ErrNotFound), errors.Is(err, fdc.ErrUnusable):
			s.writeError(w, http.StatusNotFound, "Food not found")
		case errors.Is(err, errFoodLookup):
			s.logger.Error("failed to look up food", zap.Error(err))
			s.writeError(w, http.StatusBadGateway, "Food database unavailable")
		default:
			s.logger.Error("failed to log meal", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "Failed to save meal")
		}
		return
	}
	s.writeJSON(w, http.StatusCreated, entry)
}

// handleListMeals handles GET /api/meals?from=&to=&limit=. Both bounds accept
// RFC 3339 timestamps or YYYY-MM-DD dates; a date-only to includes that
// whole day. The default is today. With limit and no bounds the most
// recent entries are returned instead.
func (s *Server) handleListMeals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" && q.Get("from") == "" && q.Get("to") == "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			s.writeError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		entries, err := s.db.GetRecentMealEntries(r.Context(), min(limit, maxRecentMeals))
		if err != nil {
			s.logger.Error("failed to list recent meals", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "Failed to retrieve meals")
			return
		}
		s.writeJSON(w, http.StatusOK, entries)
		return
	}

	from, to := progress.DayWindow(s.now())

	if v := q.Get("from"); v != "" {
		t, _, err := parseTime(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid from parameter")
			return
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, dateOnly, err := parseTime(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid to parameter")
			return
		}
		if dateOnly {
			_, t = progress.DayWindow(t)
		}
		to = t
	}
	if !to.After(from) {
		s.writeError(w, http.StatusBadRequest, "to must be after from")
		return
	}

	entries, err := s.db.ListMealEntries(r.Context(), from, to)
	if err != nil {
		s.logger.Error("failed to list meals", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve meals")
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// handleGetMeal handles GET /api/meals/{id}
func (s *Server) handleGetMeal(w http.ResponseWriter, r *http.Request) {
	entry, err := s.db.GetMealEntry(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, database.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "Meal not found")
	case err != nil:
		s.logger.Error("failed to read meal", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve meal")
	default:
		s.writeJSON(w, http.StatusOK, entry)
	}
}

// handleDeleteMeal handles DELETE /api/meals/{id}
func (s *Server) handleDeleteMeal(w http.ResponseWriter, r *http.Request) {
	err := s.db.DeleteMealEntry(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, database.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "Meal not found")
	case err != nil:
		s.logger.Error("failed to delete meal", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to delete meal")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleGetGoal handles GET /api/goal. No goal yields null.
func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := s.currentGoal(r.Context())
	if err != nil {
		s.logger.Error("failed to read goal", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve goal")
		return
	}
	s.writeJSON(w, http.StatusOK, goal)
}

// handlePutGoal handles PUT /api/goal
func (s *Server) handlePutGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	goal, err := s.saveGoal(r.Context(), req)
	if errors.Is(err, errInvalidGoal) {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("failed to save goal", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to save goal")
		return
	}
	s.writeJSON(w, http.StatusOK, goal)
}

// handleProgress handles GET /api/progress
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	h, err := s.history(r.Context())
	if err != nil {
		s.logger.Error("failed to compute progress", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to compute progress")
		return
	}
	s.writeJSON(w, http.StatusOK, h.Summary)
}

// handleGetScan handles GET /api/scans/{id}
func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	scan, err := s.db.GetLabelScan(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, database.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "Scan not found")
	case err != nil:
		s.logger.Error("failed to read scan", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve scan")
	default:
		s.writeJSON(w, http.StatusOK, scan)
	}
}

// parseTime reports whether v was a bare date.
func parseTime(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	t, err := time.ParseInLocation(dateLayout, v, time.Local)
	return t, true, err
}
