package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/query-engine/internal/api/dto"
	"github.com/spec-kit/query-engine/internal/auth"
	"github.com/spec-kit/query-engine/internal/engine"
	apperrors "github.com/spec-kit/query-engine/pkg/util/errorutil"
)

// MetricsHandler serves the trailing volume/latency series.
type MetricsHandler struct {
	engine        *engine.Engine
	defaultWindow int
}

// NewMetricsHandler constructs handler.
func NewMetricsHandler(e *engine.Engine, defaultWindow int) *MetricsHandler {
	if defaultWindow <= 0 {
		defaultWindow = 30
	}
	return &MetricsHandler{engine: e, defaultWindow: defaultWindow}
}

// Series GET /metrics/queries?window=7.
func (h *MetricsHandler) Series(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("actor required")
	}

	window := h.defaultWindow
	if raw := c.Query("window"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return apperrors.NewValidation("window must be an integer number of days", nil)
		}
		window = parsed
	}

	series, err := h.engine.Metrics(actor, window)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"window_days": window,
			"series":      dto.FromMetrics(series),
		},
	})
}
