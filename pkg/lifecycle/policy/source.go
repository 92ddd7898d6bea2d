package policy

import "context"

// Source yields the policy snapshot a scan runs against.
type Source interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// Load returns the store's current snapshot.
func (s *Store) Load(context.Context) (*Snapshot, error) {
	return s.Snapshot(), nil
}

// FileSource re-reads a policy file into Store on every Load, so edits to
// the file take effect at the next scan and never during one.
type FileSource struct {
	Path  string
	Store *Store
}

// NewFileSource creates a FileSource backed by store.
func NewFileSource(path string, store *Store) *FileSource {
	return &FileSource{Path: path, Store: store}
}

// Load reloads the file and returns a snapshot of the result. A malformed
// file leaves the store untouched and returns the *lifecycle.ConfigError.
func (s *FileSource) Load(context.Context) (*Snapshot, error) {
	if err := LoadInto(s.Store, s.Path); err != nil {
		return nil, err
	}
	return s.Store.Snapshot(), nil
}

var (
	_ Source = (*Store)(nil)
	_ Source = (*FileSource)(nil)
)
