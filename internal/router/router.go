package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/prompt-arena/internal/config"
	"github.com/noah-isme/prompt-arena/internal/handler"
	"github.com/noah-isme/prompt-arena/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SubmissionHandler  *handler.SubmissionHandler
	LeaderboardHandler *handler.LeaderboardHandler
	RealtimeHandler    *handler.RealtimeHandler
	PageHandler        *handler.PageHandler
	DisableMetrics     bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if !deps.DisableMetrics {
		app.Get("/metrics", observability.MetricsHandler())
	}

	if deps.PageHandler != nil {
		deps.PageHandler.Register(app)
	}

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(app)
	}

	if deps.LeaderboardHandler != nil {
		deps.LeaderboardHandler.Register(app)
	}

	if deps.RealtimeHandler != nil {
		deps.RealtimeHandler.Register(app)
	}
}
