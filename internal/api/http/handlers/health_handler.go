package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/query-engine/internal/persistence"
)

// HealthHandler answers liveness and readiness probes. Readiness checks
// the stores the engine cannot serve writes without; liveness reports
// process identity plus how many queries the snapshot currently holds.
type HealthHandler struct {
	serviceName   string
	version       string
	startedAt     time.Time
	snapshotSize  func() int
	postgres      *persistence.Postgres
	redis         *persistence.Redis
	probeDeadline time.Duration
}

// NewHealthHandler returns a new handler instance. snapshotSize may be
// nil when no engine is attached (tests).
func NewHealthHandler(serviceName, version string, snapshotSize func() int, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{
		serviceName:   serviceName,
		version:       version,
		startedAt:     time.Now(),
		snapshotSize:  snapshotSize,
		postgres:      postgres,
		redis:         redis,
		probeDeadline: 2 * time.Second,
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":         "alive",
		"service":        h.serviceName,
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	}
	if h.snapshotSize != nil {
		body["cached_queries"] = h.snapshotSize()
	}
	return c.JSON(body)
}

// Ready reports readiness by pinging postgres and redis.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.probeDeadline)
	defer cancel()

	deps := fiber.Map{}
	ready := true

	if err := h.postgres.Ping(ctx); err != nil {
		deps["postgres"] = err.Error()
		ready = false
	} else {
		deps["postgres"] = "ok"
	}

	if err := h.redis.Ping(ctx); err != nil {
		deps["redis"] = err.Error()
		ready = false
	} else {
		deps["redis"] = "ok"
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": deps,
		})
	}
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": deps,
		},
	})
}
