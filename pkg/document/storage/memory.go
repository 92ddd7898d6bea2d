package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"mercator-hq/custodian/pkg/document"
	"mercator-hq/custodian/pkg/lifecycle"
)

// MemoryStore implements document.Store using an in-memory map.
type MemoryStore struct {
	docs map[string]*lifecycle.Document
	mu   sync.RWMutex
	now  func() time.Time
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]*lifecycle.Document),
		now:  time.Now,
	}
}

// ListActiveDocuments returns all non-deleted documents ordered by id.
func (s *MemoryStore) ListActiveDocuments(ctx context.Context, category lifecycle.Category) ([]*lifecycle.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*lifecycle.Document, 0, len(s.docs))
	for _, d := range s.docs {
		if d.State == lifecycle.StateDeleted {
			continue
		}
		if category != "" && d.Category != category {
			continue
		}
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetDocument returns a copy of the document.
func (s *MemoryStore) GetDocument(ctx context.Context, id string) (*lifecycle.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.docs[id]
	if !ok {
		return nil, document.ErrNotFound
	}
	return d.Clone(), nil
}

// UpdateDocumentState sets the lifecycle state of a document.
func (s *MemoryStore) UpdateDocumentState(ctx context.Context, id string, expected document.Revision, state lifecycle.State) error {
	return s.mutate(id, expected, func(d *lifecycle.Document) { d.State = state })
}

// SetLegalHold sets the legal hold flag of a document.
func (s *MemoryStore) SetLegalHold(ctx context.Context, id string, expected document.Revision, hold bool) error {
	return s.mutate(id, expected, func(d *lifecycle.Document) { d.LegalHold = hold })
}

// SetRetentionExtension sets the retention extension of a document.
func (s *MemoryStore) SetRetentionExtension(ctx context.Context, id string, expected document.Revision, days int) error {
	return s.mutate(id, expected, func(d *lifecycle.Document) { d.RetentionExtensionDays = days })
}

// Put stores a copy of doc.
func (s *MemoryStore) Put(ctx context.Context, doc *lifecycle.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := doc.Clone()
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = s.now()
	}
	s.docs[c.ID] = c
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored documents, deleted ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *MemoryStore) mutate(id string, expected document.Revision, fn func(*lifecycle.Document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.docs[id]
	if !ok {
		return document.ErrNotFound
	}
	if !expected.Matches(d) {
		return document.ErrConflict
	}
	fn(d)
	d.UpdatedAt = s.now()
	return nil
}

var _ document.Store = (*MemoryStore)(nil)
