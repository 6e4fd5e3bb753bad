package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/franckalain/nutritrack/internal/logging"
	"github.com/franckalain/nutritrack/internal/models"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// ErrLabelRejected is returned when the model reports it could not read the label.
var ErrLabelRejected = errors.New("label could not be read")

const labelPrompt = `Analyze this nutritional label image and extract the values per 100g in a structured format:
- Calories (kcal)
- Protein
- Carbohydrates
- Fat

Format the response as a JSON object with exactly one of "error" or "success" populated.
Not all values can be zero. If most values are zero, raise an error explaining what went wrong.
{
	"error": {
		"error_reason": "string",
		"suggestion_for_better_results": "string"
	},
	"success": {
		"calories": number,
		"protein": number,
		"carbs": number,
		"fat": number
	}
}`

// GoogleModel implements the Model interface for Google's Vertex AI
type GoogleModel struct {
	config Config
	logger *zap.Logger
	client *genai.Client
	model  *genai.GenerativeModel
}

// GoogleModelFactory implements ModelFactory for Google models
type GoogleModelFactory struct {
	config Config
	logger *zap.Logger
}

// NewGoogleModelFactory creates a new Google model factory
func NewGoogleModelFactory(config Config, logger *zap.Logger) *GoogleModelFactory {
	return &GoogleModelFactory{config: config, logger: logging.OrNop(logger).Named("ml.google")}
}

// CreateModel creates a new Google model instance
func (f *GoogleModelFactory) CreateModel() (Model, error) {
	return &GoogleModel{
		config: f.config,
		logger: f.logger,
	}, nil
}

// Load initializes the Google model
func (m *GoogleModel) Load(ctx context.Context) error {
	opts := []option.ClientOption{}

	if m.config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(m.config.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, m.config.ProjectID, m.config.Location, opts...)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	m.client = client
	m.model = client.GenerativeModel(m.config.Model)
	m.logger.Info("vertex ai model ready",
		zap.String("project", m.config.ProjectID),
		zap.String("location", m.config.Location),
		zap.String("model", m.config.Model),
	)
	return nil
}

// Close releases the Vertex AI client.
func (m *GoogleModel) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}

// ReadLabel sends the image to Gemini and parses the per-100g values it reports.
func (m *GoogleModel) ReadLabel(ctx context.Context, imageData []byte) (models.FoodItem, error) {
	if m.model == nil {
		return models.FoodItem{}, fmt.Errorf("model not loaded")
	}
	if len(imageData) == 0 {
		return models.FoodItem{}, fmt.Errorf("empty image")
	}

	img := genai.Blob{MIMEType: http.DetectContentType(imageData), Data: imageData}

	m.logger.Debug("calling the model", zap.Int("image_bytes", len(imageData)))
	resp, err := m.model.GenerateContent(ctx, genai.Text(labelPrompt), img)
	if err != nil {
		return models.FoodItem{}, fmt.Errorf("failed to call ai: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return models.FoodItem{}, fmt.Errorf("no response generated")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	if text.Len() == 0 {
		return models.FoodItem{}, fmt.Errorf("no content in response")
	}

	return parseLabelResponse(text.String())
}

// parseLabelResponse turns the model's JSON answer into a 100 g FoodItem.
// The answer may be wrapped in a markdown code fence.
func parseLabelResponse(text string) (models.FoodItem, error) {
	text = stripCodeFence(text)
	if !gjson.Valid(text) {
		return models.FoodItem{}, fmt.Errorf("failed to parse model response: %q", text)
	}
	root := gjson.Parse(text)

	if reason := strings.TrimSpace(root.Get("error.error_reason").String()); reason != "" {
		suggestion := strings.TrimSpace(root.Get("error.suggestion_for_better_results").String())
		return models.FoodItem{}, fmt.Errorf("%w: %s; suggestion: %s", ErrLabelRejected, reason, suggestion)
	}

	success := root.Get("success")
	if !success.IsObject() {
		return models.FoodItem{}, fmt.Errorf("missing or invalid success object in response")
	}

	var values [4]float64
	for i, field := range []string{"calories", "protein", "carbs", "fat"} {
		v := success.Get(field)
		if !v.Exists() || v.Type != gjson.Number {
			return models.FoodItem{}, fmt.Errorf("missing required field '%s' in response", field)
		}
		values[i] = nonNegative(v.Float())
	}
	if values == [4]float64{} {
		return models.FoodItem{}, fmt.Errorf("%w: every value is zero", ErrLabelRejected)
	}

	return models.FoodItem{
		Name:               ScannedLabelName,
		Calories:           int(values[0]),
		Protein:            values[1],
		Carbs:              values[2],
		Fat:                values[3],
		ServingDescription: models.DefaultServing,
	}, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
