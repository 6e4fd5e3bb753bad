// Package fdc is the HTTP client for the USDA FoodData Central API. Raw
// responses are handed to fooddata for normalization; this package owns
// transport concerns only: rate limiting, caching and error reporting.
package fdc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/franckalain/nutritrack/internal/fooddata"
	"github.com/franckalain/nutritrack/internal/logging"
	"github.com/franckalain/nutritrack/internal/metrics"
	"github.com/franckalain/nutritrack/internal/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	maxPageSize     = 200
	maxResponseSize = 8 << 20
	detailWorkers   = 4
)

var (
	ErrEmptyQuery = errors.New("search query is empty")
	ErrNotFound   = errors.New("food not found")
	ErrUnusable   = errors.New("food record could not be normalized")
)

// StatusError is returned when FoodData Central answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fooddata central returned %d: %s", e.StatusCode, e.Body)
}

// Config holds client settings.
type Config struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64 // requests per second
	Burst     int
	CacheSize int
	PageSize  int // default search result count
}

// Client talks to FoodData Central. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *lru.Cache[string, models.FoodItem]
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// New creates a client. logger and m may be nil.
func New(cfg Config, logger *zap.Logger, m *metrics.Metrics) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("fdc base url is required")
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	if cfg.PageSize <= 0 || cfg.PageSize > maxPageSize {
		cfg.PageSize = 25
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	cache, err := lru.New[string, models.FoodItem](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create detail cache: %w", err)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		pageSize:   cfg.PageSize,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, cfg.Burst),
		cache:      cache,
		metrics:    m,
		logger:     logging.OrNop(logger).Named("fdc"),
	}, nil
}

// Search runs a free-text food search and returns the normalized results.
// limit <= 0 uses the configured page size.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.FoodItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = c.pageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("pageSize", fmt.Sprint(limit))

	body, err := c.get(ctx, "search", "/foods/search", params)
	if err != nil {
		return nil, err
	}

	items, kept, dropped := fooddata.SearchStats(body)
	c.metrics.RecordNormalized("search", kept, dropped)
	c.logger.Debug("search completed",
		zap.String("query", query),
		zap.Int("kept", kept),
		zap.Int("dropped", dropped),
	)
	return items, nil
}

// Detail fetches one food by FoodData Central id. Results are cached.
func (c *Client) Detail(ctx context.Context, id string) (models.FoodItem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.FoodItem{}, ErrNotFound
	}

	if item, ok := c.cache.Get(id); ok {
		c.metrics.CacheHit(true)
		return item, nil
	}
	c.metrics.CacheHit(false)

	body, err := c.get(ctx, "detail", "/food/"+url.PathEscape(id), url.Values{})
	if err != nil {
		return models.FoodItem{}, err
	}

	item, ok := fooddata.NormalizeDetailRecord(body)
	if !ok {
		c.metrics.RecordNormalized("detail", 0, 1)
		return models.FoodItem{}, fmt.Errorf("%w: %s", ErrUnusable, id)
	}
	c.metrics.RecordNormalized("detail", 1, 0)

	c.cache.Add(id, item)
	return item, nil
}

// Details looks up several foods concurrently. The result has one slot per
// id, in order; lookups that fail leave their slot nil. An error is only
// returned when ctx ends first.
func (c *Client) Details(ctx context.Context, ids []string) ([]*models.FoodItem, error) {
	out := make([]*models.FoodItem, len(ids))

	var g errgroup.Group
	g.SetLimit(detailWorkers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			item, err := c.Detail(ctx, id)
			if err != nil {
				c.logger.Warn("detail lookup failed", zap.String("id", id), zap.Error(err))
				return nil
			}
			out[i] = &item
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveFDC(endpoint, 0, time.Since(start))
		return nil, fmt.Errorf("failed to call fooddata central: %w", err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveFDC(endpoint, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
