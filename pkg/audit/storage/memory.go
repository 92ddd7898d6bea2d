package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mercator-hq/custodian/pkg/audit"
)

// MemoryStore implements audit.Store in memory.
type MemoryStore struct {
	records []*audit.Record
	ids     map[string]struct{}
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory audit log.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]struct{})}
}

// Append stores a copy of record. Duplicate ids are rejected.
func (s *MemoryStore) Append(ctx context.Context, record *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.ids[record.ID]; dup {
		return audit.NewStorageError("memory", "append", fmt.Errorf("duplicate record id %s", record.ID))
	}
	s.ids[record.ID] = struct{}{}
	s.records = append(s.records, record.Clone())
	return nil
}

// Query returns copies of matching records ordered by timestamp then id.
func (s *MemoryStore) Query(ctx context.Context, filter *audit.Filter) ([]*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []*audit.Record{}
	for _, r := range s.records {
		if filter.Matches(r) {
			results = append(results, r.Clone())
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return audit.Less(results[i], results[j]) })

	if filter != nil && filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}

// Count returns the number of matching records.
func (s *MemoryStore) Count(ctx context.Context, filter *audit.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, r := range s.records {
		if filter.Matches(r) {
			n++
		}
	}
	return n, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

var _ audit.Store = (*MemoryStore)(nil)
