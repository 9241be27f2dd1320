package engine

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/query-engine/internal/domain"
	"github.com/spec-kit/query-engine/internal/policy"
	"github.com/spec-kit/query-engine/internal/store"
	apperrors "github.com/spec-kit/query-engine/pkg/util/errorutil"
)

// ChangeStatus moves a query to OPEN or ACTIVE and commits immediately.
// RESOLVED is reachable only through the two-phase resolution flow.
func (e *Engine) ChangeStatus(ctx context.Context, queryID string, target domain.QueryStatus, actor *domain.StaffUser) (*domain.Query, error) {
	if err := policy.Authorize(actor, policy.ActionChangeStatus); err != nil {
		e.counters.RecordCommand("change_status", "denied")
		return nil, err
	}
	switch target {
	case domain.QueryStatusOpen, domain.QueryStatusActive:
	case domain.QueryStatusResolved:
		return nil, apperrors.NewValidation("resolving requires the resolution flow", nil)
	default:
		return nil, apperrors.NewValidation("unrecognized status", map[string]any{"status": string(target)})
	}

	prior, err := e.store.Get(ctx, queryID)
	if err != nil {
		e.counters.RecordCommand("change_status", "error")
		return nil, err
	}

	fields := store.Fields{
		store.FieldStatus: string(target),
	}
	// Moving out of RESOLVED abandons the resolution, so its field group
	// goes with it.
	if prior.Status == domain.QueryStatusResolved {
		clearResolution(fields)
	}

	updated, err := e.store.ApplyPartialUpdate(ctx, queryID, fields, actor.ID)
	if err != nil {
		e.counters.RecordCommand("change_status", "error")
		return nil, err
	}
	e.counters.RecordCommand("change_status", "ok")
	e.logger.Info("query status changed",
		zapQueryID(queryID),
		zapActor(actor),
		zapStatus(target))
	return updated, nil
}

// clearResolution adds NULL writes for the resolution field group.
func clearResolution(fields store.Fields) {
	fields[store.FieldResolutionMessage] = nil
	fields[store.FieldResolutionDate] = nil
	fields[store.FieldResolvedBy] = nil
}

// PendingResolution is the intent returned by ProposeResolution. It
// carries no store-side state: committing re-validates everything, and
// cancelling simply discards the intent without a write.
type PendingResolution struct {
	QueryID     string
	ReferenceID string
	ProposedBy  string
	ProposedAt  time.Time
}

// Cancel abandons the pending resolution. No write occurs.
func (p *PendingResolution) Cancel() {}

// ProposeResolution opens a resolution intent for the query. It checks
// authorization and existence but mutates nothing; the caller gathers a
// resolution message and either commits or cancels.
func (e *Engine) ProposeResolution(ctx context.Context, queryID string, actor *domain.StaffUser) (*PendingResolution, error) {
	if err := policy.Authorize(actor, policy.ActionResolve); err != nil {
		e.counters.RecordCommand("propose_resolution", "denied")
		return nil, err
	}
	query, err := e.store.Get(ctx, queryID)
	if err != nil {
		return nil, err
	}
	return &PendingResolution{
		QueryID:     query.ID,
		ReferenceID: query.ReferenceID,
		ProposedBy:  actor.ID,
		ProposedAt:  e.now(),
	}, nil
}

// CommitResolution validates the resolution message and atomically
// writes the full resolution field group. The resolution date is
// truncated to the day, which the latency metric relies on.
func (e *Engine) CommitResolution(ctx context.Context, queryID, message string, actor *domain.StaffUser) (*domain.Query, error) {
	if err := policy.Authorize(actor, policy.ActionResolve); err != nil {
		e.counters.RecordCommand("commit_resolution", "denied")
		return nil, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		e.counters.RecordCommand("commit_resolution", "invalid")
		return nil, apperrors.NewValidation("resolution message required", nil)
	}

	resolutionDate := domain.TruncateToDay(e.now())
	updated, err := e.store.ApplyPartialUpdate(ctx, queryID, store.Fields{
		store.FieldStatus:            string(domain.QueryStatusResolved),
		store.FieldResolutionMessage: message,
		store.FieldResolutionDate:    resolutionDate,
		store.FieldResolvedBy:        actor.Name,
	}, actor.ID)
	if err != nil {
		e.counters.RecordCommand("commit_resolution", "error")
		return nil, err
	}
	e.counters.RecordCommand("commit_resolution", "ok")
	e.logger.Info("query resolved",
		zapQueryID(queryID),
		zapActor(actor))
	return updated, nil
}
