package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/spec-kit/query-engine/pkg/util/errorutil"
)

// AssignmentRecord is one append-only audit row written per assignment.
type AssignmentRecord struct {
	QueryID      string
	FromAssignee *string
	ToAssignee   string
	ActorID      string
	AssignedAt   time.Time
}

// AssignmentAudit appends assignment history. The trail is advisory:
// callers log failures and continue.
type AssignmentAudit interface {
	Record(ctx context.Context, rec AssignmentRecord) error
}

type assignmentAudit struct {
	pool *pgxpool.Pool
}

// NewAssignmentAudit instantiates the audit writer.
func NewAssignmentAudit(pool *pgxpool.Pool) AssignmentAudit {
	return &assignmentAudit{pool: pool}
}

func (a *assignmentAudit) Record(ctx context.Context, rec AssignmentRecord) error {
	const stmt = `
        INSERT INTO query_assignments (query_id, from_assignee, to_assignee, actor_id, assigned_at)
        VALUES ($1,$2,$3,$4,$5)`
	if _, err := a.pool.Exec(ctx, stmt,
		rec.QueryID,
		rec.FromAssignee,
		rec.ToAssignee,
		rec.ActorID,
		rec.AssignedAt,
	); err != nil {
		return apperrors.NewPersistence("assignment audit insert failed", err)
	}
	return nil
}
