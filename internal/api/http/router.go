package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/query-engine/internal/api/http/handlers"
	"github.com/spec-kit/query-engine/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Queries        *handlers.QueriesHandler
	Metrics        *handlers.MetricsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	v1 := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	v1.Post("/queries", cfg.Queries.Create)
	v1.Get("/queries", cfg.Queries.List)
	v1.Get("/queries/:id", cfg.Queries.Get)
	v1.Post("/queries/:id/assign", cfg.Queries.Assign)
	v1.Patch("/queries/:id/status", cfg.Queries.ChangeStatus)
	v1.Post("/queries/:id/resolution/propose", cfg.Queries.ProposeResolution)
	v1.Post("/queries/:id/resolution/commit", cfg.Queries.CommitResolution)

	v1.Get("/metrics/queries", cfg.Metrics.Series)
}
