package document

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/custodian/pkg/lifecycle"
)

// ErrNotFound is returned when a document id does not exist.
var ErrNotFound = errors.New("document not found")

// ErrConflict is returned when a conditional write finds the document
// changed since it was read.
var ErrConflict = errors.New("document changed concurrently")

// Revision is the mutable part of a document a write was planned against.
// Writes apply only while the stored document still matches it.
type Revision struct {
	State                  lifecycle.State
	LegalHold              bool
	RetentionExtensionDays int
}

// RevisionOf returns the revision of d.
func RevisionOf(d *lifecycle.Document) Revision {
	return Revision{
		State:                  d.State,
		LegalHold:              d.LegalHold,
		RetentionExtensionDays: d.RetentionExtensionDays,
	}
}

// Matches reports whether d is still at revision r.
func (r Revision) Matches(d *lifecycle.Document) bool {
	return RevisionOf(d) == r
}

// Store is the document system of record.
type Store interface {
	// ListActiveDocuments returns every document not yet deleted. An empty
	// category lists all categories.
	ListActiveDocuments(ctx context.Context, category lifecycle.Category) ([]*lifecycle.Document, error)

	// GetDocument returns the current copy of a document.
	GetDocument(ctx context.Context, id string) (*lifecycle.Document, error)

	// UpdateDocumentState moves a document to a new lifecycle state. The
	// three writers return ErrConflict when the stored document no longer
	// matches expected.
	UpdateDocumentState(ctx context.Context, id string, expected Revision, state lifecycle.State) error

	// SetLegalHold places or releases a legal hold.
	SetLegalHold(ctx context.Context, id string, expected Revision, hold bool) error

	// SetRetentionExtension sets the total retention extension in days.
	SetRetentionExtension(ctx context.Context, id string, expected Revision, days int) error

	// Put inserts or replaces a document.
	Put(ctx context.Context, doc *lifecycle.Document) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// StorageError represents an error from a document store backend.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("document storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}
