package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/query-engine/internal/api/dto"
	"github.com/spec-kit/query-engine/internal/auth"
	"github.com/spec-kit/query-engine/internal/domain"
	"github.com/spec-kit/query-engine/internal/engine"
	apperrors "github.com/spec-kit/query-engine/pkg/util/errorutil"
)

// QueriesHandler exposes the query lifecycle and assignment surface.
type QueriesHandler struct {
	engine *engine.Engine
}

// NewQueriesHandler constructs handler.
func NewQueriesHandler(e *engine.Engine) *QueriesHandler {
	return &QueriesHandler{engine: e}
}

// Create POST /queries.
func (h *QueriesHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("actor required")
	}
	var req dto.CreateQueryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidation("invalid payload", nil)
	}

	query, err := h.engine.CreateQuery(c.UserContext(), actor, engine.CreateQueryInput{
		AccountNumber: req.AccountNumber,
		CustomerName:  req.CustomerName,
		ContactNumber: req.ContactNumber,
		Description:   req.Description,
		QueryType:     req.QueryType,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromQuery(query)})
}

// List GET /queries?status=OPEN,ACTIVE.
func (h *QueriesHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("actor required")
	}

	statuses, err := parseStatusFilter(c.Query("status"))
	if err != nil {
		return err
	}
	queries, err := h.engine.ListQueries(actor, statuses...)
	if err != nil {
		return err
	}

	items := make([]dto.QueryResponse, 0, len(queries))
	for i := range queries {
		items = append(items, dto.FromQuery(&queries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /queries/:id.
func (h *QueriesHandler) Get(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("actor required")
	}
	query, err := h.engine.GetQuery(actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromQuery(query)})
}

// Assign POST /queries/:id/assign.
func (h *QueriesHandler) Assign(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("actor required")
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidation("invalid payload", nil)
	}
	if strings.TrimSpace(req.AssigneeID) == "" {
		return apperrors.NewValidation("assignee_id required", nil)
	}

	query, err := h.engine.Assign(c.UserContext(), c.Params("id"), req.AssigneeID, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromQuery(query)})
}

// ChangeStatus PATCH /queries/:id/status.
func (h *QueriesHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("actor required")
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidation("invalid payload", nil)
	}

	target := domain.QueryStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	query, err := h.engine.ChangeStatus(c.UserContext(), c.Params("id"), target, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromQuery(query)})
}

// ProposeResolution POST /queries/:id/resolution/propose.
func (h *QueriesHandler) ProposeResolution(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("actor required")
	}
	pending, err := h.engine.ProposeResolution(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PendingResolutionResponse{
		QueryID:     pending.QueryID,
		ReferenceID: pending.ReferenceID,
		ProposedBy:  pending.ProposedBy,
		ProposedAt:  pending.ProposedAt,
	}})
}

// CommitResolution POST /queries/:id/resolution/commit.
func (h *QueriesHandler) CommitResolution(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("actor required")
	}
	var req dto.ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidation("invalid payload", nil)
	}

	query, err := h.engine.CommitResolution(c.UserContext(), c.Params("id"), req.Message, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromQuery(query)})
}

func parseStatusFilter(raw string) ([]domain.QueryStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	statuses := make([]domain.QueryStatus, 0, len(parts))
	for _, part := range parts {
		status := domain.QueryStatus(strings.ToUpper(strings.TrimSpace(part)))
		if !domain.ValidStatus(status) {
			return nil, apperrors.NewValidation("unrecognized status", map[string]any{"status": part})
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
