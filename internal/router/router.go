package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mathieu-neron/zeitgeist/internal/handler"
	"github.com/mathieu-neron/zeitgeist/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Classify *handler.ClassifyHandler
	Video    *handler.VideoHandler
	Health   *handler.HealthHandler
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
// A nil gatherer disables the /metrics route and request instrumentation.
// The returned func stops the rate limiters' background cleanup.
func Setup(app *fiber.App, h *Handlers, corsOrigins string, gatherer prometheus.Gatherer) (stop func()) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestLogger())
	app.Use(middleware.NewCORS(corsOrigins))
	if gatherer != nil {
		app.Use(handler.MetricsMiddleware())
		app.Get("/metrics", handler.MetricsHandler(gatherer))
	}

	// Health checks (before API group, not rate limited)
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)

	api := app.Group("/api")

	// Classification routes
	classifyLimiter := middleware.NewClassifyRateLimiter()
	classify := api.Group("/classify", classifyLimiter.Handler())
	classify.Get("", h.Classify.ClassifyQuery)
	classify.Post("/url", h.Classify.ClassifyURL)
	classify.Post("/upload", h.Classify.Upload)

	// Stored video playback
	videoLimiter := middleware.NewVideoRateLimiter()
	videos := api.Group("/videos", videoLimiter.Handler())
	videos.Get("/:submissionId", h.Video.Get)

	return func() {
		classifyLimiter.Stop()
		videoLimiter.Stop()
	}
}
