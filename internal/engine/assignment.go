package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/query-engine/internal/domain"
	"github.com/spec-kit/query-engine/internal/policy"
	"github.com/spec-kit/query-engine/internal/store"
)

// Assign routes a query to a staff member. Only superadmins may assign.
// Assignment always forces the query to ACTIVE, including from RESOLVED:
// reassigning a resolved query reopens it. The notification publish is
// best-effort and never rolls back the committed assignment.
func (e *Engine) Assign(ctx context.Context, queryID, assigneeID string, actor *domain.StaffUser) (*domain.Query, error) {
	if err := policy.Authorize(actor, policy.ActionAssign); err != nil {
		e.counters.RecordCommand("assign", "denied")
		return nil, err
	}

	assignee, err := e.directory.GetByID(ctx, assigneeID)
	if err != nil {
		e.counters.RecordCommand("assign", "error")
		return nil, err
	}

	prior, err := e.store.Get(ctx, queryID)
	if err != nil {
		e.counters.RecordCommand("assign", "error")
		return nil, err
	}

	assignedAt := e.now()
	fields := store.Fields{
		store.FieldAssignedTo:     assignee.ID,
		store.FieldAssignedToName: assignee.Name,
		store.FieldAssignedBy:     actor.ID,
		store.FieldAssignedAt:     assignedAt,
		store.FieldStatus:         string(domain.QueryStatusActive),
	}
	// Reopening a resolved query clears its resolution group so the
	// stored document keeps status and resolution fields consistent.
	if prior.Status == domain.QueryStatusResolved {
		clearResolution(fields)
	}
	updated, err := e.store.ApplyPartialUpdate(ctx, queryID, fields, actor.ID)
	if err != nil {
		e.counters.RecordCommand("assign", "error")
		return nil, err
	}
	e.counters.RecordCommand("assign", "ok")
	e.logger.Info("query assigned",
		zapQueryID(queryID),
		zapActor(actor),
		zap.String("assignee_id", assignee.ID))

	e.recordAssignmentAudit(ctx, prior, assignee.ID, actor.ID)
	e.notifyAssignment(ctx, updated, assignee, actor)
	return updated, nil
}

// recordAssignmentAudit appends to the advisory assignment trail.
func (e *Engine) recordAssignmentAudit(ctx context.Context, prior *domain.Query, assigneeID, actorID string) {
	if e.audit == nil {
		return
	}
	rec := store.AssignmentRecord{
		QueryID:      prior.ID,
		FromAssignee: prior.AssignedTo,
		ToAssignee:   assigneeID,
		ActorID:      actorID,
		AssignedAt:   e.now(),
	}
	if err := e.audit.Record(ctx, rec); err != nil {
		e.logger.Warn("assignment audit write failed", zapQueryID(prior.ID), zap.Error(err))
	}
}

// notifyAssignment publishes the assignment event. Failure is logged as
// a warning and swallowed: the assignment is the authoritative action.
func (e *Engine) notifyAssignment(ctx context.Context, query *domain.Query, assignee, actor *domain.StaffUser) {
	if e.sink == nil {
		return
	}
	event := domain.AssignmentNotificationEvent{
		ID:               uuid.NewString(),
		Type:             domain.NotificationQueryAssignment,
		RecipientID:      assignee.ID,
		SenderID:         actor.ID,
		SenderName:       actor.Name,
		QueryID:          query.ID,
		QueryTitle:       queryTitle(query),
		QueryDescription: query.Description,
		Read:             false,
		CreatedAt:        e.now(),
	}
	if err := e.sink.PublishAssignment(ctx, event); err != nil {
		e.counters.RecordNotificationDrop()
		e.logger.Warn("assignment notification dropped",
			zapQueryID(query.ID),
			zap.String("recipient_id", assignee.ID),
			zap.Error(err))
	}
}

func queryTitle(query *domain.Query) string {
	if query.QueryType == "" {
		return query.ReferenceID
	}
	return fmt.Sprintf("%s (%s)", query.QueryType, query.ReferenceID)
}

func zapQueryID(id string) zap.Field {
	return zap.String("query_id", id)
}

func zapActor(actor *domain.StaffUser) zap.Field {
	return zap.String("actor_id", actor.ID)
}

func zapStatus(status domain.QueryStatus) zap.Field {
	return zap.String("status", string(status))
}
