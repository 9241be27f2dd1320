package engine

import (
	"sort"
	"sync"

	"github.com/spec-kit/query-engine/internal/domain"
	"github.com/spec-kit/query-engine/internal/store"
)

// Snapshot is the engine's in-memory view of the full query set, kept
// current by the subscription loop. The loop is the only writer; reads
// come from HTTP handlers and the metrics runner, hence the lock.
type Snapshot struct {
	mu      sync.RWMutex
	queries map[string]domain.Query
}

// NewSnapshot creates an empty snapshot cache.
func NewSnapshot() *Snapshot {
	return &Snapshot{queries: make(map[string]domain.Query)}
}

// Apply folds one change event into the snapshot.
func (s *Snapshot) Apply(event store.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch event.Kind {
	case store.ChangeAdded, store.ChangeModified:
		s.queries[event.Query.ID] = event.Query
	case store.ChangeRemoved:
		// Queries are permanent records; removal only happens if the
		// store is purged out-of-band. Honor it anyway.
		delete(s.queries, event.Query.ID)
	}
}

// Get returns one query by id.
func (s *Snapshot) Get(id string) (domain.Query, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	query, ok := s.queries[id]
	return query, ok
}

// All returns a copy of every query in the snapshot.
func (s *Snapshot) All() []domain.Query {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Query, 0, len(s.queries))
	for _, query := range s.queries {
		result = append(result, query)
	}
	return result
}

// List returns queries matching the given statuses (all when empty),
// newest submission first.
func (s *Snapshot) List(statuses ...domain.QueryStatus) []domain.Query {
	wanted := make(map[domain.QueryStatus]struct{}, len(statuses))
	for _, status := range statuses {
		wanted[status] = struct{}{}
	}

	s.mu.RLock()
	result := make([]domain.Query, 0, len(s.queries))
	for _, query := range s.queries {
		if len(wanted) > 0 {
			if _, ok := wanted[query.Status]; !ok {
				continue
			}
		}
		result = append(result, query)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].SubmissionDate.After(result[j].SubmissionDate)
	})
	return result
}

// Len reports the number of cached queries.
func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.queries)
}
