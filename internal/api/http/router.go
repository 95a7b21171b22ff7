package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bbn-music/community-bot/internal/api/http/handlers"
	"github.com/bbn-music/community-bot/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Metrics     *handlers.MetricsHandler
	Transcripts *handlers.TranscriptsHandler
	Tokens      *auth.TokenManager
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Metrics.Snapshot)

	app.Get("/transcripts/:id", auth.TranscriptAccess(cfg.Tokens), cfg.Transcripts.GetTranscript)
}
