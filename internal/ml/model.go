package ml

import (
	"context"
	"errors"
	"fmt"

	"github.com/franckalain/nutritrack/internal/models"
	"go.uber.org/zap"
)

// ErrUnimplemented is returned by backends that cannot read labels yet.
var ErrUnimplemented = errors.New("unimplemented: label reading is not available for this model")

// ScannedLabelName names items produced from a label photo.
const ScannedLabelName = "Scanned label"

// Model reads nutrition labels from images
type Model interface {
	// Load initializes the model with its configuration
	Load(ctx context.Context) error
	// ReadLabel extracts the per-100g values printed on a nutrition label.
	ReadLabel(ctx context.Context, imageData []byte) (models.FoodItem, error)
}

// ModelFactory creates a new model instance based on configuration
type ModelFactory interface {
	// CreateModel creates a new model instance
	CreateModel() (Model, error)
}

// NewModel creates a new model instance based on cfg.Type
func NewModel(cfg Config, logger *zap.Logger) (Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	var factory ModelFactory
	switch cfg.Type {
	case "google":
		factory = NewGoogleModelFactory(cfg, logger)
	case "local":
		factory = NewLocalModelFactory(logger)
	default:
		return nil, fmt.Errorf("unsupported model type: %s", cfg.Type)
	}
	return factory.CreateModel()
}
