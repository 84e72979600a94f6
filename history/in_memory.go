package history

import (
	"context"
	"sort"
	"sync"

	"github.com/hupe1980/flowmesh/workflow"
)

// InMemoryStore keeps run records in a mutex guarded map. Records are copied
// on read so callers can never mutate stored state.
type InMemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*RunRecord
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{runs: make(map[string]*RunRecord)}
}

// Save implements Store.
func (s *InMemoryStore) Save(_ context.Context, rec *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[rec.RunID] = cloneRecord(rec)
	return nil
}

// Get implements Store.
func (s *InMemoryStore) Get(_ context.Context, runID string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.runs[runID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

// List implements Store.
func (s *InMemoryStore) List(_ context.Context, limit int) ([]*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]*RunRecord, 0, len(s.runs))
	for _, rec := range s.runs {
		recs = append(recs, cloneRecord(rec))
	}

	sort.Slice(recs, func(i, j int) bool {
		return recs[i].StartedAt.After(recs[j].StartedAt)
	})

	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// Close implements Store.
func (s *InMemoryStore) Close() error { return nil }

func cloneRecord(rec *RunRecord) *RunRecord {
	out := *rec
	out.Steps = append([]workflow.Step(nil), rec.Steps...)
	return &out
}
