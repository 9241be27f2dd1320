package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/query-engine/internal/config"
	"github.com/spec-kit/query-engine/internal/directory"
	"github.com/spec-kit/query-engine/internal/domain"
	"github.com/spec-kit/query-engine/internal/observability"
	"github.com/spec-kit/query-engine/internal/store"
)

type mockQueryStore struct {
	SubscribeFunc          func(ctx context.Context) (<-chan store.ChangeEvent, error)
	GetFunc                func(ctx context.Context, id string) (*domain.Query, error)
	CreateFunc             func(ctx context.Context, query *domain.Query) error
	ApplyPartialUpdateFunc func(ctx context.Context, id string, fields store.Fields, actorID string) (*domain.Query, error)
}

func (m *mockQueryStore) Subscribe(ctx context.Context) (<-chan store.ChangeEvent, error) {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(ctx)
	}
	ch := make(chan store.ChangeEvent)
	close(ch)
	return ch, nil
}

func (m *mockQueryStore) Get(ctx context.Context, id string) (*domain.Query, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockQueryStore) Create(ctx context.Context, query *domain.Query) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, query)
	}
	return nil
}

func (m *mockQueryStore) ApplyPartialUpdate(ctx context.Context, id string, fields store.Fields, actorID string) (*domain.Query, error) {
	if m.ApplyPartialUpdateFunc != nil {
		return m.ApplyPartialUpdateFunc(ctx, id, fields, actorID)
	}
	return nil, nil
}

type mockStaffDirectory struct {
	GetByIDFunc    func(ctx context.Context, id string) (*domain.StaffUser, error)
	GetByEmailFunc func(ctx context.Context, email string) (*domain.StaffUser, error)
	ListFunc       func(ctx context.Context, filter directory.StaffFilter) ([]domain.StaffUser, error)
}

func (m *mockStaffDirectory) GetByID(ctx context.Context, id string) (*domain.StaffUser, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockStaffDirectory) GetByEmail(ctx context.Context, email string) (*domain.StaffUser, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (m *mockStaffDirectory) List(ctx context.Context, filter directory.StaffFilter) ([]domain.StaffUser, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, nil
}

type mockNotificationSink struct {
	PublishAssignmentFunc func(ctx context.Context, event domain.AssignmentNotificationEvent) error
	published             []domain.AssignmentNotificationEvent
}

func (m *mockNotificationSink) PublishAssignment(ctx context.Context, event domain.AssignmentNotificationEvent) error {
	m.published = append(m.published, event)
	if m.PublishAssignmentFunc != nil {
		return m.PublishAssignmentFunc(ctx, event)
	}
	return nil
}

type mockAssignmentAudit struct {
	RecordFunc func(ctx context.Context, rec store.AssignmentRecord) error
	records    []store.AssignmentRecord
}

func (m *mockAssignmentAudit) Record(ctx context.Context, rec store.AssignmentRecord) error {
	m.records = append(m.records, rec)
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, rec)
	}
	return nil
}

type engineFixture struct {
	engine *Engine
	store  *mockQueryStore
	staff  *mockStaffDirectory
	sink   *mockNotificationSink
	audit  *mockAssignmentAudit
}

func newFixture(now time.Time) *engineFixture {
	f := &engineFixture{
		store: &mockQueryStore{},
		staff: &mockStaffDirectory{},
		sink:  &mockNotificationSink{},
		audit: &mockAssignmentAudit{},
	}
	f.engine = New(Dependencies{
		Store:     f.store,
		Directory: f.staff,
		Sink:      f.sink,
		Audit:     f.audit,
		Logger:    zap.NewNop(),
		Counters:  observability.NewCounters(),
		Config: config.EngineConfig{
			DefaultWindowDays:    30,
			SubscriberBufferSize: 16,
		},
	})
	f.engine.now = func() time.Time { return now }
	return f
}

func superadmin() *domain.StaffUser {
	return &domain.StaffUser{ID: "super-1", Name: "S. Nkosi", Role: domain.StaffRoleSuperadmin, Active: true}
}

func admin() *domain.StaffUser {
	return &domain.StaffUser{ID: "admin-1", Name: "A. Dlamini", Role: domain.StaffRoleAdmin, Active: true}
}

func openQuery(id string, submitted time.Time) *domain.Query {
	return &domain.Query{
		ID:             id,
		ReferenceID:    "QRY-" + id,
		CustomerName:   "J. Moeketsi",
		Description:    "No water supply since Monday",
		QueryType:      "Water",
		SubmissionDate: submitted,
		Status:         domain.QueryStatusOpen,
		LastUpdated:    submitted,
		UpdatedBy:      "intake",
	}
}
