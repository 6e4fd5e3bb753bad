package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/franckalain/nutritrack/internal/database"
	"github.com/franckalain/nutritrack/internal/ml"
	"github.com/franckalain/nutritrack/internal/models"
	"github.com/franckalain/nutritrack/internal/storage"
	"go.uber.org/zap"
)

// Unconfirmed scans older than this are forgotten.
const pendingScanTTL = 30 * time.Minute

var errScanNotPending = errors.New("scan not found or already confirmed")

type scanRequest struct {
	Image string `json:"image"` // base64 or data URL
}

type confirmScanRequest struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Grams    float64 `json:"total_weight"`
}

type pendingScan struct {
	image       []byte
	contentType string
	createdAt   time.Time
}

// ScanError reports a label the model could not read. The scan is kept
// with status failed.
type ScanError struct {
	ScanID string
	Err    error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("failed to process image for scan %s: %v", e.ScanID, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// ScanResult is sent back so the user can check the values before saving.
type ScanResult struct {
	ID   string          `json:"id"`
	Item models.FoodItem `json:"item"`
}

// scanLabel reads a label photo and keeps it until the user confirms it.
func (s *Server) scanLabel(ctx context.Context, req scanRequest) (*ScanResult, error) {
	imageData, contentType, err := storage.DecodeImage(req.Image)
	if err != nil {
		return nil, err
	}

	scan := &models.LabelScan{Status: models.ScanPending}
	if err := s.db.SaveLabelScan(ctx, scan); err != nil {
		return nil, err
	}

	item, err := s.model.ReadLabel(ctx, imageData)
	if err != nil {
		s.metrics.LabelScan(models.ScanFailed)
		if updateErr := s.db.UpdateScanStatus(ctx, scan.ID, models.ScanFailed, err.Error()); updateErr != nil {
			s.logger.Error("failed to mark scan as failed", zap.String("scan_id", scan.ID), zap.Error(updateErr))
		}
		return nil, &ScanError{ScanID: scan.ID, Err: err}
	}

	scan.Result = &item
	if err := s.db.SaveLabelScan(ctx, scan); err != nil {
		return nil, err
	}

	s.prunePending()
	s.pending.Store(scan.ID, pendingScan{image: imageData, contentType: contentType, createdAt: s.now()})

	s.logger.Info("label scanned",
		zap.String("scan_id", scan.ID),
		zap.Int("calories", item.Calories),
		zap.Float64("protein", item.Protein),
		zap.Float64("carbs", item.Carbs),
		zap.Float64("fat", item.Fat),
	)
	return &ScanResult{ID: scan.ID, Item: item}, nil
}

// confirmScan archives the photo, stores the corrected values and logs
// the meal.
func (s *Server) confirmScan(ctx context.Context, req confirmScanRequest) (*models.MealEntry, error) {
	value, ok := s.pending.LoadAndDelete(req.ID)
	if !ok {
		return nil, errScanNotPending
	}
	p := value.(pendingScan)

	scan, err := s.db.GetLabelScan(ctx, req.ID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, errScanNotPending
	}
	if err != nil {
		return nil, err
	}

	grams := req.Grams
	if !validGrams(grams) {
		grams = 100
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = ml.ScannedLabelName
	}
	item := models.FoodItem{
		ID:                 "scan:" + scan.ID,
		Name:               name,
		Calories:           int(nonNegative(req.Calories)),
		Protein:            nonNegative(req.Protein),
		Carbs:              nonNegative(req.Carbs),
		Fat:                nonNegative(req.Fat),
		ServingDescription: models.DefaultServing,
	}

	location, err := s.images.Put(ctx, storage.ImageKey(scan.ID, p.contentType), p.contentType, p.image)
	if err != nil {
		// The meal is still worth saving without the photo.
		s.logger.Warn("failed to archive label image", zap.String("scan_id", scan.ID), zap.Error(err))
	}

	scan.ImageURL = location
	scan.Status = models.ScanCompleted
	scan.Result = &item
	if err := s.db.SaveLabelScan(ctx, scan); err != nil {
		return nil, err
	}
	s.metrics.LabelScan(models.ScanCompleted)

	return s.logMeal(ctx, mealRequest{Item: &item, Grams: grams})
}

func (s *Server) prunePending() {
	cutoff := s.now().Add(-pendingScanTTL)
	s.pending.Range(func(key, value any) bool {
		if p, ok := value.(pendingScan); ok && p.createdAt.Before(cutoff) {
			s.pending.Delete(key)
		}
		return true
	})
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
