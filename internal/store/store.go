package store

import (
	"context"

	"github.com/spec-kit/query-engine/internal/domain"
)

// ChangeKind classifies a subscription delta.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "ADDED"
	ChangeModified ChangeKind = "MODIFIED"
	ChangeRemoved  ChangeKind = "REMOVED"
)

// ChangeEvent carries one full query document per delta. A fresh
// subscription replays the complete current set as ADDED events before
// any live delta is delivered.
type ChangeEvent struct {
	Kind  ChangeKind
	Query domain.Query
}

// Updatable column names accepted by ApplyPartialUpdate.
const (
	FieldStatus            = "status"
	FieldAssignedTo        = "assigned_to"
	FieldAssignedToName    = "assigned_to_name"
	FieldAssignedBy        = "assigned_by"
	FieldAssignedAt        = "assigned_at"
	FieldResolutionMessage = "resolution_message"
	FieldResolutionDate    = "resolution_date"
	FieldResolvedBy        = "resolved_by"
)

// Fields names the columns a partial update touches. Columns not named
// are left untouched, so two commands racing on the same query cannot
// clobber each other's field groups.
type Fields map[string]any

// QueryStore is the engine's view of the external persistence layer.
type QueryStore interface {
	// Subscribe opens a long-lived change feed. The returned channel is
	// closed when ctx is cancelled or the feed fails.
	Subscribe(ctx context.Context) (<-chan ChangeEvent, error)
	Get(ctx context.Context, id string) (*domain.Query, error)
	Create(ctx context.Context, query *domain.Query) error
	// ApplyPartialUpdate merges only the named fields into the stored
	// document, stamps last_updated/updated_by, and returns the merged
	// result. The write is bounded by the store's configured timeout.
	ApplyPartialUpdate(ctx context.Context, id string, fields Fields, actorID string) (*domain.Query, error)
}
