package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/query-engine/internal/config"
	"github.com/spec-kit/query-engine/internal/directory"
	"github.com/spec-kit/query-engine/internal/domain"
	"github.com/spec-kit/query-engine/internal/notify"
	"github.com/spec-kit/query-engine/internal/observability"
	"github.com/spec-kit/query-engine/internal/policy"
	"github.com/spec-kit/query-engine/internal/store"
	apperrors "github.com/spec-kit/query-engine/pkg/util/errorutil"
)

// Engine owns one live subscription to the query set, an in-memory
// snapshot, and the command surface that mutates queries through the
// store. Commands are safe to call from any goroutine and never run on
// the subscription loop, so a slow store write cannot stall delta
// delivery.
type Engine struct {
	store     store.QueryStore
	directory directory.StaffDirectory
	sink      notify.NotificationSink
	audit     store.AssignmentAudit
	logger    *zap.Logger
	counters  *observability.Counters

	snapshot *Snapshot
	stream   *changeStream
	metrics  *metricsRunner
	now      func() time.Time
}

// Dependencies bundles engine collaborators.
type Dependencies struct {
	Store     store.QueryStore
	Directory directory.StaffDirectory
	Sink      notify.NotificationSink
	Audit     store.AssignmentAudit
	Logger    *zap.Logger
	Counters  *observability.Counters
	Config    config.EngineConfig
}

// New constructs the engine.
func New(deps Dependencies) *Engine {
	e := &Engine{
		store:     deps.Store,
		directory: deps.Directory,
		sink:      deps.Sink,
		audit:     deps.Audit,
		logger:    deps.Logger,
		counters:  deps.Counters,
		snapshot:  NewSnapshot(),
		stream:    newChangeStream(deps.Config.SubscriberBufferSize),
		now:       time.Now,
	}
	e.metrics = newMetricsRunner(deps.Config.DefaultWindowDays, e.snapshot.All, func() time.Time { return e.now() }, deps.Logger)
	return e
}

// Run drains the store subscription until ctx ends. Handlers run to
// completion before the next event, so snapshot mutation needs no
// coordination beyond the snapshot's own lock.
func (e *Engine) Run(ctx context.Context) error {
	events, err := e.store.Subscribe(ctx)
	if err != nil {
		return err
	}
	e.logger.Info("query subscription opened")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				e.logger.Warn("query subscription closed")
				return nil
			}
			e.snapshot.Apply(event)
			e.counters.RecordDelta(string(event.Kind))
			e.stream.Publish(event)
			e.metrics.Trigger()
		}
	}
}

// SubscribeQueries exposes the typed change stream. The cancel function
// releases the subscription.
func (e *Engine) SubscribeQueries() (<-chan store.ChangeEvent, func()) {
	return e.stream.Subscribe()
}

// SnapshotSize reports how many queries the snapshot currently holds.
func (e *Engine) SnapshotSize() int {
	return e.snapshot.Len()
}

// ListQueries returns snapshot queries visible to the actor, optionally
// filtered by status.
func (e *Engine) ListQueries(actor *domain.StaffUser, statuses ...domain.QueryStatus) ([]domain.Query, error) {
	if err := policy.Authorize(actor, policy.ActionViewQueries); err != nil {
		return nil, err
	}
	return e.snapshot.List(statuses...), nil
}

// GetQuery returns one query from the snapshot.
func (e *Engine) GetQuery(actor *domain.StaffUser, id string) (*domain.Query, error) {
	if err := policy.Authorize(actor, policy.ActionViewQueries); err != nil {
		return nil, err
	}
	query, ok := e.snapshot.Get(id)
	if !ok {
		return nil, apperrors.NewNotFound("query", map[string]any{"query_id": id})
	}
	return &query, nil
}

// Metrics returns the trailing series for the requested window.
func (e *Engine) Metrics(actor *domain.StaffUser, windowDays int) ([]MetricsBucket, error) {
	if err := policy.Authorize(actor, policy.ActionViewQueries); err != nil {
		return nil, err
	}
	return e.metrics.SeriesFor(windowDays)
}

// CreateQueryInput describes the intake payload.
type CreateQueryInput struct {
	AccountNumber string
	CustomerName  string
	ContactNumber string
	Description   string
	QueryType     string
}

// CreateQuery files a new query in status OPEN on behalf of a customer.
// Intake has no role gate beyond an authenticated caller.
func (e *Engine) CreateQuery(ctx context.Context, actor *domain.StaffUser, input CreateQueryInput) (*domain.Query, error) {
	if actor == nil {
		return nil, apperrors.NewAuthorization("actor required")
	}
	if strings.TrimSpace(input.CustomerName) == "" || strings.TrimSpace(input.Description) == "" {
		return nil, apperrors.NewValidation("customer_name and description required", nil)
	}

	query := &domain.Query{
		ReferenceID:    generateReferenceID(),
		AccountNumber:  strings.TrimSpace(input.AccountNumber),
		CustomerName:   strings.TrimSpace(input.CustomerName),
		ContactNumber:  strings.TrimSpace(input.ContactNumber),
		Description:    strings.TrimSpace(input.Description),
		QueryType:      strings.TrimSpace(input.QueryType),
		SubmissionDate: e.now(),
		Status:         domain.QueryStatusOpen,
		UpdatedBy:      actor.ID,
	}
	if err := e.store.Create(ctx, query); err != nil {
		e.counters.RecordCommand("create", "error")
		return nil, err
	}
	e.counters.RecordCommand("create", "ok")
	return query, nil
}

// generateReferenceID builds the human-facing code for a new query.
func generateReferenceID() string {
	return "QRY-" + strings.ToUpper(uuid.NewString()[:8])
}
