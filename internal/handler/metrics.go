package handler

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Metrics holds all Prometheus collectors for the ZeitGeist backend.
var Metrics = struct {
	ClassificationsTotal   *prometheus.CounterVec
	ClassificationDuration *prometheus.HistogramVec
	DetectedCategories     *prometheus.CounterVec
	RequestDuration        *prometheus.HistogramVec
	RequestsInFlight       prometheus.Gauge
	CacheHits              prometheus.Counter
	CacheMisses            prometheus.Counter
}{}

// InitMetrics registers all Prometheus metrics on reg. Call once at startup.
func InitMetrics(reg prometheus.Registerer) {
	Metrics.ClassificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zeitgeist_classifications_total",
			Help: "Total classification submissions, by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	// Classifier runs take seconds to minutes; default buckets top out at 10s.
	Metrics.ClassificationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zeitgeist_classification_duration_seconds",
			Help:    "End-to-end submission duration (download + classify + reshape), by source.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"source"},
	)

	Metrics.DetectedCategories = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zeitgeist_detected_categories_total",
			Help: "Categories flagged in results, by modality (visual, audio) and category.",
		},
		[]string{"modality", "category"},
	)

	Metrics.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zeitgeist_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	Metrics.RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "zeitgeist_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	Metrics.CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "zeitgeist_result_cache_hits_total",
			Help: "Total Redis result cache hits.",
		},
	)

	Metrics.CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "zeitgeist_result_cache_misses_total",
			Help: "Total Redis result cache misses.",
		},
	)

	reg.MustRegister(
		Metrics.ClassificationsTotal,
		Metrics.ClassificationDuration,
		Metrics.DetectedCategories,
		Metrics.RequestDuration,
		Metrics.RequestsInFlight,
		Metrics.CacheHits,
		Metrics.CacheMisses,
	)
}

// Category names come from the classifier, so the label set is capped.
const (
	maxCategoryLabels   = 64
	maxCategoryLabelLen = 64
	otherCategoryLabel  = "other"
)

// categoryLabels hands out at most limit distinct category labels; later
// categories share otherCategoryLabel.
type categoryLabels struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	limit int
}

func newCategoryLabels(limit int) *categoryLabels {
	return &categoryLabels{seen: make(map[string]struct{}), limit: limit}
}

func (l *categoryLabels) label(category string) string {
	if category == "" || len(category) > maxCategoryLabelLen {
		return otherCategoryLabel
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[category]; ok {
		return category
	}
	if len(l.seen) >= l.limit {
		return otherCategoryLabel
	}
	l.seen[category] = struct{}{}
	return category
}

var detectedLabels = newCategoryLabels(maxCategoryLabels)

// MetricsMiddleware records request duration and in-flight count for Prometheus.
func MetricsMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		// Don't instrument the /metrics endpoint itself
		if c.Path() == "/metrics" {
			return c.Next()
		}

		// Copy path and method into owned strings BEFORE c.Next(): Fiber
		// returns slices backed by the fasthttp buffer which can be reused
		// or overwritten by handlers (especially fasthttpadaptor).
		path := string([]byte(c.Path()))
		method := string([]byte(c.Method()))
		endpoint := sanitizeEndpoint(path)

		Metrics.RequestsInFlight.Inc()
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())

		Metrics.RequestDuration.WithLabelValues(endpoint, method, status).Observe(duration)
		Metrics.RequestsInFlight.Dec()

		return err
	}
}

// sanitizeEndpoint normalizes paths to avoid cardinality explosion.
func sanitizeEndpoint(path string) string {
	if strings.HasPrefix(path, "/api/videos/") && len(path) > len("/api/videos/") {
		return "/api/videos/:submissionId"
	}
	return path
}

// MetricsHandler serves the Prometheus /metrics endpoint via Fiber.
func MetricsHandler(g prometheus.Gatherer) fiber.Handler {
	httpHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return func(c fiber.Ctx) error {
		httpHandler(c.RequestCtx())
		return nil
	}
}
