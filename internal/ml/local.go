package ml

import (
	"context"

	"github.com/franckalain/nutritrack/internal/logging"
	"github.com/franckalain/nutritrack/internal/models"
	"go.uber.org/zap"
)

// LocalModel is the offline backend. It has no recognizer yet, so every
// scan fails with ErrUnimplemented and the client falls back to manual entry.
type LocalModel struct {
	logger *zap.Logger
}

// LocalModelFactory implements ModelFactory for local models
type LocalModelFactory struct {
	logger *zap.Logger
}

// NewLocalModelFactory creates a new local model factory
func NewLocalModelFactory(logger *zap.Logger) *LocalModelFactory {
	return &LocalModelFactory{logger: logging.OrNop(logger).Named("ml.local")}
}

// CreateModel creates a new local model instance
func (f *LocalModelFactory) CreateModel() (Model, error) {
	return &LocalModel{logger: f.logger}, nil
}

// Load initializes the local model
func (m *LocalModel) Load(ctx context.Context) error {
	m.logger.Info("local label reader loaded; scans will be rejected")
	return nil
}

// ReadLabel always fails with ErrUnimplemented.
func (m *LocalModel) ReadLabel(ctx context.Context, imageData []byte) (models.FoodItem, error) {
	return models.FoodItem{}, ErrUnimplemented
}
