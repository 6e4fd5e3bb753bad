// Package metrics holds the Prometheus collectors for food lookups and
// meal logging.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus metrics for the food pipeline.
// A nil *Metrics is valid and records nothing.
//
// Metrics:
//   - nutritrack_records_total{shape,result} - normalized records (kept/dropped)
//   - nutritrack_fdc_request_duration_seconds{endpoint,status} - FoodData Central latency
//   - nutritrack_fdc_cache_hits_total / nutritrack_fdc_cache_misses_total
//   - nutritrack_meals_logged_total
//   - nutritrack_label_scans_total{status}
type Metrics struct {
	registry *prometheus.Registry

	RecordsTotal     *prometheus.CounterVec
	FDCDuration      *prometheus.HistogramVec
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	MealsLogged      prometheus.Counter
	LabelScans       *prometheus.CounterVec
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RecordsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nutritrack_records_total",
				Help: "FoodData Central records normalized, by record shape and result",
			},
			[]string{"shape", "result"}, // shape: search|detail, result: kept|dropped
		),
		FDCDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nutritrack_fdc_request_duration_seconds",
				Help:    "Duration of FoodData Central requests in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
			},
			[]string{"endpoint", "status"},
		),
		CacheHitsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "nutritrack_fdc_cache_hits_total",
			Help: "Food detail lookups served from cache",
		}),
		CacheMissesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "nutritrack_fdc_cache_misses_total",
			Help: "Food detail lookups that went to FoodData Central",
		}),
		MealsLogged: f.NewCounter(prometheus.CounterOpts{
			Name: "nutritrack_meals_logged_total",
			Help: "Meal entries saved",
		}),
		LabelScans: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nutritrack_label_scans_total",
				Help: "Nutrition label scans by outcome",
			},
			[]string{"status"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordNormalized counts kept and dropped records for a response shape.
func (m *Metrics) RecordNormalized(shape string, kept, dropped int) {
	if m == nil {
		return
	}
	m.RecordsTotal.WithLabelValues(shape, "kept").Add(float64(kept))
	m.RecordsTotal.WithLabelValues(shape, "dropped").Add(float64(dropped))
}

// ObserveFDC records the latency of one FoodData Central request.
// status is the HTTP status, or 0 for transport failures.
func (m *Metrics) ObserveFDC(endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FDCDuration.WithLabelValues(endpoint, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// CacheHit records a detail cache hit or miss.
func (m *Metrics) CacheHit(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissesTotal.Inc()
}

// MealLogged counts a saved meal entry.
func (m *Metrics) MealLogged() {
	if m == nil {
		return
	}
	m.MealsLogged.Inc()
}

// LabelScan counts a finished label scan.
func (m *Metrics) LabelScan(status string) {
	if m == nil {
		return
	}
	m.LabelScans.WithLabelValues(status).Inc()
}
