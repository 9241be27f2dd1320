package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/query-engine/internal/domain"
	"github.com/spec-kit/query-engine/internal/store"
	apperrors "github.com/spec-kit/query-engine/pkg/util/errorutil"
)

func assignee() *domain.StaffUser {
	return &domain.StaffUser{ID: "staff-7", Name: "T. Mashaba", Role: domain.StaffRoleAdmin, Active: true}
}

func TestAssign_ForcesActiveAndNotifies(t *testing.T) {
	now := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)
	f := newFixture(now)

	target := assignee()
	f.staff.GetByIDFunc = func(ctx context.Context, id string) (*domain.StaffUser, error) {
		require.Equal(t, target.ID, id)
		return target, nil
	}
	f.store.GetFunc = func(ctx context.Context, id string) (*domain.Query, error) {
		return openQuery(id, now), nil
	}

	var gotFields store.Fields
	f.store.ApplyPartialUpdateFunc = func(ctx context.Context, id string, fields store.Fields, actorID string) (*domain.Query, error) {
		gotFields = fields
		q := openQuery(id, now)
		q.Status = domain.QueryStatusActive
		q.AssignedTo = &target.ID
		q.AssignedToName = &target.Name
		return q, nil
	}

	actor := superadmin()
	updated, err := f.engine.Assign(context.Background(), "q-1", target.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, domain.QueryStatusActive, updated.Status)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, target.ID, *updated.AssignedTo)

	require.Len(t, gotFields, 5)
	assert.Equal(t, string(domain.QueryStatusActive), gotFields[store.FieldStatus])
	assert.Equal(t, target.ID, gotFields[store.FieldAssignedTo])
	assert.Equal(t, target.Name, gotFields[store.FieldAssignedToName])
	assert.Equal(t, actor.ID, gotFields[store.FieldAssignedBy])
	assert.Equal(t, now, gotFields[store.FieldAssignedAt])

	require.Len(t, f.sink.published, 1)
	event := f.sink.published[0]
	assert.Equal(t, domain.NotificationQueryAssignment, event.Type)
	assert.Equal(t, target.ID, event.RecipientID)
	assert.Equal(t, actor.ID, event.SenderID)
	assert.Equal(t, actor.Name, event.SenderName)
	assert.False(t, event.Read)

	require.Len(t, f.audit.records, 1)
	assert.Equal(t, target.ID, f.audit.records[0].ToAssignee)
	assert.Nil(t, f.audit.records[0].FromAssignee)
}

func TestAssign_ReopensResolvedQuery(t *testing.T) {
	now := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	f := newFixture(now)

	target := assignee()
	f.staff.GetByIDFunc = func(ctx context.Context, id string) (*domain.StaffUser, error) {
		return target, nil
	}
	f.store.GetFunc = func(ctx context.Context, id string) (*domain.Query, error) {
		q := openQuery(id, now.AddDate(0, 0, -9))
		q.Status = domain.QueryStatusResolved
		message := "Leak repaired"
		date := domain.TruncateToDay(now.AddDate(0, 0, -5))
		resolver := "A. Dlamini"
		q.ResolutionMessage = &message
		q.ResolutionDate = &date
		q.ResolvedBy = &resolver
		return q, nil
	}

	var gotFields store.Fields
	f.store.ApplyPartialUpdateFunc = func(ctx context.Context, id string, fields store.Fields, actorID string) (*domain.Query, error) {
		gotFields = fields
		q := openQuery(id, now.AddDate(0, 0, -9))
		q.Status = domain.QueryStatusActive
		return q, nil
	}

	_, err := f.engine.Assign(context.Background(), "q-9", target.ID, superadmin())
	require.NoError(t, err)
	// Reassignment out of RESOLVED is intentional: status is forced back
	// to ACTIVE and the stale resolution group is cleared in the same
	// write, keeping status and resolution fields consistent.
	require.Len(t, gotFields, 8)
	assert.Equal(t, string(domain.QueryStatusActive), gotFields[store.FieldStatus])
	assert.Contains(t, gotFields, store.FieldResolutionMessage)
	assert.Nil(t, gotFields[store.FieldResolutionMessage])
	assert.Nil(t, gotFields[store.FieldResolutionDate])
	assert.Nil(t, gotFields[store.FieldResolvedBy])
}

func TestAssign_OpenQueryLeavesResolutionFieldsAlone(t *testing.T) {
	now := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	f := newFixture(now)

	target := assignee()
	f.staff.GetByIDFunc = func(ctx context.Context, id string) (*domain.StaffUser, error) {
		return target, nil
	}
	f.store.GetFunc = func(ctx context.Context, id string) (*domain.Query, error) {
		return openQuery(id, now), nil
	}

	var gotFields store.Fields
	f.store.ApplyPartialUpdateFunc = func(ctx context.Context, id string, fields store.Fields, actorID string) (*domain.Query, error) {
		gotFields = fields
		q := openQuery(id, now)
		q.Status = domain.QueryStatusActive
		return q, nil
	}

	_, err := f.engine.Assign(context.Background(), "q-1", target.ID, superadmin())
	require.NoError(t, err)
	require.Len(t, gotFields, 5)
	assert.NotContains(t, gotFields, store.FieldResolutionMessage)
}

func TestAssign_AdminDenied(t *testing.T) {
	f := newFixture(time.Now())

	lookedUp := false
	f.staff.GetByIDFunc = func(ctx context.Context, id string) (*domain.StaffUser, error) {
		lookedUp = true
		return assignee(), nil
	}
	applied := false
	f.store.ApplyPartialUpdateFunc = func(ctx context.Context, id string, fields store.Fields, actorID string) (*domain.Query, error) {
		applied = true
		return nil, nil
	}

	_, err := f.engine.Assign(context.Background(), "q-1", "staff-7", admin())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	assert.False(t, lookedUp)
	assert.False(t, applied)
	assert.Empty(t, f.sink.published)
	assert.Empty(t, f.audit.records)
}

func TestAssign_UnknownAssignee(t *testing.T) {
	f := newFixture(time.Now())
	f.staff.GetByIDFunc = func(ctx context.Context, id string) (*domain.StaffUser, error) {
		return nil, apperrors.NewNotFound("staff", map[string]any{"staff_id": id})
	}
	applied := false
	f.store.ApplyPartialUpdateFunc = func(ctx context.Context, id string, fields store.Fields, actorID string) (*domain.Query, error) {
		applied = true
		return nil, nil
	}

	_, err := f.engine.Assign(context.Background(), "q-1", "ghost", superadmin())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.False(t, applied)
	assert.Empty(t, f.sink.published)
}

func TestAssign_NotificationFailureDoesNotRollBack(t *testing.T) {
	now := time.Now()
	f := newFixture(now)

	target := assignee()
	f.staff.GetByIDFunc = func(ctx context.Context, id string) (*domain.StaffUser, error) {
		return target, nil
	}
	f.store.GetFunc = func(ctx context.Context, id string) (*domain.Query, error) {
		return openQuery(id, now), nil
	}
	f.store.ApplyPartialUpdateFunc = func(ctx context.Context, id string, fields store.Fields, actorID string) (*domain.Query, error) {
		q := openQuery(id, now)
		q.Status = domain.QueryStatusActive
		return q, nil
	}
	f.sink.PublishAssignmentFunc = func(ctx context.Context, event domain.AssignmentNotificationEvent) error {
		return apperrors.NewNotification(errors.New("broker down"))
	}

	updated, err := f.engine.Assign(context.Background(), "q-1", target.ID, superadmin())
	require.NoError(t, err)
	assert.Equal(t, domain.QueryStatusActive, updated.Status)
}

func TestAssign_AuditFailureIgnored(t *testing.T) {
	now := time.Now()
	f := newFixture(now)

	target := assignee()
	f.staff.GetByIDFunc = func(ctx context.Context, id string) (*domain.StaffUser, error) {
		return target, nil
	}
	f.store.GetFunc = func(ctx context.Context, id string) (*domain.Query, error) {
		return openQuery(id, now), nil
	}
	f.store.ApplyPartialUpdateFunc = func(ctx context.Context, id string, fields store.Fields, actorID string) (*domain.Query, error) {
		q := openQuery(id, now)
		q.Status = domain.QueryStatusActive
		return q, nil
	}
	f.audit.RecordFunc = func(ctx context.Context, rec store.AssignmentRecord) error {
		return apperrors.NewPersistence("audit insert failed", errors.New("table missing"))
	}

	_, err := f.engine.Assign(context.Background(), "q-1", target.ID, superadmin())
	require.NoError(t, err)
	require.Len(t, f.sink.published, 1)
}

func TestAssign_PersistenceErrorBlocksNotification(t *testing.T) {
	now := time.Now()
	f := newFixture(now)

	f.staff.GetByIDFunc = func(ctx context.Context, id string) (*domain.StaffUser, error) {
		return assignee(), nil
	}
	f.store.GetFunc = func(ctx context.Context, id string) (*domain.Query, error) {
		return openQuery(id, now), nil
	}
	f.store.ApplyPartialUpdateFunc = func(ctx context.Context, id string, fields store.Fields, actorID string) (*domain.Query, error) {
		return nil, apperrors.NewPersistence("partial update failed", errors.New("connection reset"))
	}

	_, err := f.engine.Assign(context.Background(), "q-1", "staff-7", superadmin())
	assert.True(t, apperrors.HasCode(err, apperrors.CodePersistence))
	assert.Empty(t, f.sink.published)
	assert.Empty(t, f.audit.records)
}
