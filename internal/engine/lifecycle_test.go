package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/query-engine/internal/domain"
	"github.com/spec-kit/query-engine/internal/store"
	apperrors "github.com/spec-kit/query-engine/pkg/util/errorutil"
)

func TestChangeStatus_CommitsImmediately(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	f := newFixture(now)

	f.store.GetFunc = func(ctx context.Context, id string) (*domain.Query, error) {
		return openQuery(id, now.AddDate(0, 0, -2)), nil
	}
	var gotFields store.Fields
	var gotActor string
	f.store.ApplyPartialUpdateFunc = func(ctx context.Context, id string, fields store.Fields, actorID string) (*domain.Query, error) {
		gotFields = fields
		gotActor = actorID
		q := openQuery(id, now.AddDate(0, 0, -2))
		q.Status = domain.QueryStatusActive
		return q, nil
	}

	updated, err := f.engine.ChangeStatus(context.Background(), "q-1", domain.QueryStatusActive, admin())
	require.NoError(t, err)
	assert.Equal(t, domain.QueryStatusActive, updated.Status)
	assert.Equal(t, "admin-1", gotActor)
	require.Len(t, gotFields, 1)
	assert.Equal(t, string(domain.QueryStatusActive), gotFields[store.FieldStatus])
}

func TestChangeStatus_LeavingResolvedClearsResolution(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(now)

	f.store.GetFunc = func(ctx context.Context, id string) (*domain.Query, error) {
		q := openQuery(id, now.AddDate(0, 0, -6))
		q.Status = domain.QueryStatusResolved
		message := "Leak repaired"
		date := domain.TruncateToDay(now.AddDate(0, 0, -2))
		resolver := "A. Dlamini"
		q.ResolutionMessage = &message
		q.ResolutionDate = &date
		q.ResolvedBy = &resolver
		return q, nil
	}
	var gotFields store.Fields
	f.store.ApplyPartialUpdateFunc = func(ctx context.Context, id string, fields store.Fields, actorID string) (*domain.Query, error) {
		gotFields = fields
		q := openQuery(id, now.AddDate(0, 0, -6))
		q.Status = domain.QueryStatusActive
		return q, nil
	}

	_, err := f.engine.ChangeStatus(context.Background(), "q-1", domain.QueryStatusActive, admin())
	require.NoError(t, err)
	require.Len(t, gotFields, 4)
	assert.Equal(t, string(domain.QueryStatusActive), gotFields[store.FieldStatus])
	assert.Nil(t, gotFields[store.FieldResolutionMessage])
	assert.Nil(t, gotFields[store.FieldResolutionDate])
	assert.Nil(t, gotFields[store.FieldResolvedBy])
}

func TestChangeStatus_RejectsResolvedTarget(t *testing.T) {
	f := newFixture(time.Now())

	applied := false
	f.store.ApplyPartialUpdateFunc = func(ctx context.Context, id string, fields store.Fields, actorID string) (*domain.Query, error) {
		applied = true
		return nil, nil
	}

	_, err := f.engine.ChangeStatus(context.Background(), "q-1", domain.QueryStatusResolved, admin())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	assert.False(t, applied)
}

func TestChangeStatus_RejectsUnrecognizedStatus(t *testing.T) {
	f := newFixture(time.Now())

	_, err := f.engine.ChangeStatus(context.Background(), "q-1", domain.QueryStatus("ESCALATED"), admin())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestChangeStatus_DeniedForUserRole(t *testing.T) {
	f := newFixture(time.Now())

	applied := false
	f.store.ApplyPartialUpdateFunc = func(ctx context.Context, id string, fields store.Fields, actorID string) (*domain.Query, error) {
		applied = true
		return nil, nil
	}

	user := &domain.StaffUser{ID: "u-1", Name: "User", Role: domain.StaffRoleUser}
	_, err := f.engine.ChangeStatus(context.Background(), "q-1", domain.QueryStatusOpen, user)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	assert.False(t, applied)
}

func TestProposeResolution_PerformsNoWrite(t *testing.T) {
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	f := newFixture(now)

	f.store.GetFunc = func(ctx context.Context, id string) (*domain.Query, error) {
		return openQuery(id, now.AddDate(0, 0, -4)), nil
	}
	applied := false
	f.store.ApplyPartialUpdateFunc = func(ctx context.Context, id string, fields store.Fields, actorID string) (*domain.Query, error) {
		applied = true
		return nil, nil
	}

	pending, err := f.engine.ProposeResolution(context.Background(), "q-1", admin())
	require.NoError(t, err)
	assert.Equal(t, "q-1", pending.QueryID)
	assert.Equal(t, "admin-1", pending.ProposedBy)
	assert.Equal(t, now, pending.ProposedAt)
	assert.False(t, applied)

	// Cancelling the intent writes nothing either.
	pending.Cancel()
	assert.False(t, applied)
}

func TestProposeResolution_UnknownQuery(t *testing.T) {
	f := newFixture(time.Now())
	f.store.GetFunc = func(ctx context.Context, id string) (*domain.Query, error) {
		return nil, apperrors.NewNotFound("query", nil)
	}

	_, err := f.engine.ProposeResolution(context.Background(), "missing", admin())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestCommitResolution_WritesFullResolutionGroup(t *testing.T) {
	now := time.Date(2024, 3, 5, 16, 45, 12, 0, time.UTC)
	f := newFixture(now)

	var gotFields store.Fields
	f.store.ApplyPartialUpdateFunc = func(ctx context.Context, id string, fields store.Fields, actorID string) (*domain.Query, error) {
		gotFields = fields
		q := openQuery(id, now.AddDate(0, 0, -4))
		q.Status = domain.QueryStatusResolved
		return q, nil
	}

	actor := admin()
	updated, err := f.engine.CommitResolution(context.Background(), "q-1", "Fixed meter", actor)
	require.NoError(t, err)
	assert.Equal(t, domain.QueryStatusResolved, updated.Status)

	require.Len(t, gotFields, 4)
	assert.Equal(t, string(domain.QueryStatusResolved), gotFields[store.FieldStatus])
	assert.Equal(t, "Fixed meter", gotFields[store.FieldResolutionMessage])
	assert.Equal(t, actor.Name, gotFields[store.FieldResolvedBy])

	// Resolution date is truncated to local midnight.
	resolutionDate, ok := gotFields[store.FieldResolutionDate].(time.Time)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), resolutionDate)
}

func TestCommitResolution_BlankMessageBlocksWrite(t *testing.T) {
	f := newFixture(time.Now())

	applied := false
	f.store.ApplyPartialUpdateFunc = func(ctx context.Context, id string, fields store.Fields, actorID string) (*domain.Query, error) {
		applied = true
		return nil, nil
	}

	for _, message := range []string{"", "   ", "\t\n"} {
		_, err := f.engine.CommitResolution(context.Background(), "q-1", message, admin())
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "message %q", message)
	}
	assert.False(t, applied)
}

func TestCommitResolution_PersistenceErrorPropagates(t *testing.T) {
	f := newFixture(time.Now())
	f.store.ApplyPartialUpdateFunc = func(ctx context.Context, id string, fields store.Fields, actorID string) (*domain.Query, error) {
		return nil, apperrors.NewPersistence("partial update timed out", context.DeadlineExceeded)
	}

	_, err := f.engine.CommitResolution(context.Background(), "q-1", "Fixed meter", admin())
	assert.True(t, apperrors.HasCode(err, apperrors.CodePersistence))
}
