package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/query-engine/internal/domain"
	apperrors "github.com/spec-kit/query-engine/pkg/util/errorutil"
)

const queryColumns = `id, reference_id, account_number, customer_name, contact_number, description, query_type,
               submission_date, status, assigned_to, assigned_to_name, assigned_by, assigned_at,
               resolution_message, resolution_date, resolved_by, last_updated, updated_by`

// PostgresQueryStore persists queries in postgres and fans deltas out
// over a Redis channel so every engine instance sees every change.
type PostgresQueryStore struct {
	pool          *pgxpool.Pool
	redis         *redis.Client
	logger        *zap.Logger
	changeChannel string
	writeTimeout  time.Duration
	bufferSize    int
}

// PostgresQueryStoreOptions bundles store configuration.
type PostgresQueryStoreOptions struct {
	Pool          *pgxpool.Pool
	Redis         *redis.Client
	Logger        *zap.Logger
	ChangeChannel string
	WriteTimeout  time.Duration
	BufferSize    int
}

// NewPostgresQueryStore constructs the store.
func NewPostgresQueryStore(opts PostgresQueryStoreOptions) *PostgresQueryStore {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 256
	}
	return &PostgresQueryStore{
		pool:          opts.Pool,
		redis:         opts.Redis,
		logger:        opts.Logger,
		changeChannel: opts.ChangeChannel,
		writeTimeout:  opts.WriteTimeout,
		bufferSize:    opts.BufferSize,
	}
}

// Subscribe replays the full current query set as ADDED events, then
// streams live deltas from the Redis change channel until ctx ends.
func (s *PostgresQueryStore) Subscribe(ctx context.Context) (<-chan ChangeEvent, error) {
	// Attach to the channel before reading the current set so a delta
	// committed during the replay query is buffered rather than lost.
	// A delta observed both ways carries the full document, so applying
	// it twice is harmless.
	sub := s.redis.Subscribe(ctx, s.changeChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, apperrors.NewPersistence("change channel subscription failed", err)
	}

	replay, err := s.listAll(ctx)
	if err != nil {
		_ = sub.Close()
		return nil, apperrors.NewPersistence("replay of current query set failed", err)
	}

	out := make(chan ChangeEvent, s.bufferSize)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		s.pump(ctx, out, replay, sub.Channel())
	}()
	return out, nil
}

// pump emits the replay set as ADDED events, then forwards decoded live
// deltas until ctx ends or the message channel closes.
func (s *PostgresQueryStore) pump(ctx context.Context, out chan<- ChangeEvent, replay []domain.Query, messages <-chan *redis.Message) {
	for i := range replay {
		select {
		case out <- ChangeEvent{Kind: ChangeAdded, Query: replay[i]}:
		case <-ctx.Done():
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			event, err := decodeChange(msg.Payload)
			if err != nil {
				s.logger.Warn("dropping malformed change event", zap.Error(err))
				continue
			}
			select {
			case out <- *event:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Get fetches one query by id.
func (s *PostgresQueryStore) Get(ctx context.Context, id string) (*domain.Query, error) {
	query := fmt.Sprintf(`SELECT %s FROM queries WHERE id=$1`, queryColumns)
	row := s.pool.QueryRow(ctx, query, id)
	result, err := scanQuery(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("query", map[string]any{"query_id": id})
		}
		return nil, apperrors.NewPersistence("query read failed", err)
	}
	return result, nil
}

// Create inserts a new query and publishes an ADDED delta.
func (s *PostgresQueryStore) Create(ctx context.Context, query *domain.Query) error {
	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	const stmt = `
        INSERT INTO queries (reference_id, account_number, customer_name, contact_number, description, query_type,
                             submission_date, status, last_updated, updated_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),$9)
        RETURNING id, last_updated`
	err := s.pool.QueryRow(ctx, stmt,
		query.ReferenceID,
		query.AccountNumber,
		query.CustomerName,
		query.ContactNumber,
		query.Description,
		query.QueryType,
		query.SubmissionDate,
		query.Status,
		query.UpdatedBy,
	).Scan(&query.ID, &query.LastUpdated)
	if err != nil {
		return apperrors.NewPersistence("query insert failed", err)
	}

	s.publishChange(ctx, ChangeAdded, query)
	return nil
}

// ApplyPartialUpdate merges only the named fields, stamps
// last_updated/updated_by, publishes a MODIFIED delta, and returns the
// merged document. The write is bounded by the configured timeout.
func (s *PostgresQueryStore) ApplyPartialUpdate(ctx context.Context, id string, fields Fields, actorID string) (*domain.Query, error) {
	if len(fields) == 0 {
		return nil, apperrors.NewValidation("partial update names no fields", nil)
	}
	setClause, args, err := buildPartialUpdate(fields, actorID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	args = append(args, id)
	stmt := fmt.Sprintf(`UPDATE queries SET %s WHERE id=$%d RETURNING %s`, setClause, len(args), queryColumns)

	row := s.pool.QueryRow(ctx, stmt, args...)
	updated, err := scanQuery(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("query", map[string]any{"query_id": id})
		}
		if ctx.Err() != nil {
			return nil, apperrors.NewPersistence("partial update timed out", ctx.Err())
		}
		return nil, apperrors.NewPersistence("partial update failed", err)
	}

	s.publishChange(ctx, ChangeModified, updated)
	return updated, nil
}

// buildPartialUpdate renders a SET clause covering exactly the named
// columns plus the audit stamps. Unknown columns are rejected.
func buildPartialUpdate(fields Fields, actorID string) (string, []any, error) {
	allowed := map[string]struct{}{
		FieldStatus:            {},
		FieldAssignedTo:        {},
		FieldAssignedToName:    {},
		FieldAssignedBy:        {},
		FieldAssignedAt:        {},
		FieldResolutionMessage: {},
		FieldResolutionDate:    {},
		FieldResolvedBy:        {},
	}

	columns := make([]string, 0, len(fields))
	for column := range fields {
		if _, ok := allowed[column]; !ok {
			return "", nil, apperrors.NewValidation("unsupported update field", map[string]any{"field": column})
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)

	assignments := make([]string, 0, len(columns)+2)
	args := make([]any, 0, len(columns)+1)
	for _, column := range columns {
		args = append(args, fields[column])
		assignments = append(assignments, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	args = append(args, actorID)
	assignments = append(assignments, fmt.Sprintf("updated_by=$%d", len(args)))
	assignments = append(assignments, "last_updated=NOW()")

	return strings.Join(assignments, ", "), args, nil
}

func (s *PostgresQueryStore) listAll(ctx context.Context) ([]domain.Query, error) {
	stmt := fmt.Sprintf(`SELECT %s FROM queries ORDER BY submission_date ASC`, queryColumns)
	rows, err := s.pool.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Query
	for rows.Next() {
		query, err := scanQuery(rows)
		if err != nil {
			return nil, err
		}
		// Replay holds rows to the same invariants as live deltas.
		if err := query.Validate(); err != nil {
			s.logger.Warn("skipping invalid stored query", zap.String("query_id", query.ID), zap.Error(err))
			continue
		}
		result = append(result, *query)
	}
	return result, rows.Err()
}

func (s *PostgresQueryStore) publishChange(ctx context.Context, kind ChangeKind, query *domain.Query) {
	payload, err := json.Marshal(changeEnvelope{Kind: kind, Query: toDocument(query)})
	if err != nil {
		s.logger.Warn("change event marshal failed", zap.String("query_id", query.ID), zap.Error(err))
		return
	}
	if err := s.redis.Publish(ctx, s.changeChannel, payload).Err(); err != nil {
		// The row is committed; a lost delta only delays snapshot
		// convergence until the next replay.
		s.logger.Warn("change event publish failed", zap.String("query_id", query.ID), zap.Error(err))
	}
}

func decodeChange(payload string) (*ChangeEvent, error) {
	var envelope changeEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return nil, err
	}
	switch envelope.Kind {
	case ChangeAdded, ChangeModified, ChangeRemoved:
	default:
		return nil, fmt.Errorf("unknown change kind %q", envelope.Kind)
	}
	query, err := fromDocument(envelope.Query)
	if err != nil {
		return nil, err
	}
	return &ChangeEvent{Kind: envelope.Kind, Query: *query}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuery(row rowScanner) (*domain.Query, error) {
	var query domain.Query
	if err := row.Scan(
		&query.ID,
		&query.ReferenceID,
		&query.AccountNumber,
		&query.CustomerName,
		&query.ContactNumber,
		&query.Description,
		&query.QueryType,
		&query.SubmissionDate,
		&query.Status,
		&query.AssignedTo,
		&query.AssignedToName,
		&query.AssignedBy,
		&query.AssignedAt,
		&query.ResolutionMessage,
		&query.ResolutionDate,
		&query.ResolvedBy,
		&query.LastUpdated,
		&query.UpdatedBy,
	); err != nil {
		return nil, err
	}
	return &query, nil
}
