package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/custodian/pkg/document"
	"mercator-hq/custodian/pkg/lifecycle"
)

const documentColumns = `id, name, category, loan_id, received_date, state, legal_hold, retention_extension_days, updated_at`

// SQLiteConfig configures the embedded document store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLiteStore implements document.Store on an embedded SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at cfg.Path.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", cfg.Path, cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, document.NewStorageError("sqlite", "open", err)
	}
	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{
		db:     db,
		logger: slog.Default().With("component", "document.storage.sqlite"),
		now:    time.Now,
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, document.NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := db.Exec(`INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (?, ?)`,
		SchemaVersion, time.Now().UnixNano()); err != nil {
		db.Close()
		return nil, document.NewStorageError("sqlite", "insert_schema_version", err)
	}

	s.logger.Info("document store opened", "path", cfg.Path)
	return s, nil
}

// ListActiveDocuments returns all non-deleted documents ordered by id.
func (s *SQLiteStore) ListActiveDocuments(ctx context.Context, category lifecycle.Category) ([]*lifecycle.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE state <> ?`
	args := []interface{}{string(lifecycle.StateDeleted)}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, document.NewStorageError("sqlite", "list", err)
	}
	defer rows.Close()

	docs := []*lifecycle.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, document.NewStorageError("sqlite", "scan", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, document.NewStorageError("sqlite", "list", err)
	}
	return docs, nil
}

// GetDocument returns one document by id.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*lifecycle.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, document.ErrNotFound
	}
	if err != nil {
		return nil, document.NewStorageError("sqlite", "get", err)
	}
	return d, nil
}

// revisionClause restricts an UPDATE to a document still at the expected
// revision.
const revisionClause = ` WHERE id = ? AND state = ? AND legal_hold = ? AND retention_extension_days = ?`

// UpdateDocumentState sets the lifecycle state of a document.
func (s *SQLiteStore) UpdateDocumentState(ctx context.Context, id string, expected document.Revision, state lifecycle.State) error {
	return s.update(ctx, "update_state", `UPDATE documents SET state = ?, updated_at = ?`, id, expected,
		string(state), s.now().UnixNano())
}

// SetLegalHold sets the legal hold flag of a document.
func (s *SQLiteStore) SetLegalHold(ctx context.Context, id string, expected document.Revision, hold bool) error {
	return s.update(ctx, "set_hold", `UPDATE documents SET legal_hold = ?, updated_at = ?`, id, expected,
		hold, s.now().UnixNano())
}

// SetRetentionExtension sets the retention extension of a document.
func (s *SQLiteStore) SetRetentionExtension(ctx context.Context, id string, expected document.Revision, days int) error {
	return s.update(ctx, "set_extension", `UPDATE documents SET retention_extension_days = ?, updated_at = ?`, id, expected,
		days, s.now().UnixNano())
}

// Put inserts or replaces a document.
func (s *SQLiteStore) Put(ctx context.Context, doc *lifecycle.Document) error {
	updated := doc.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			loan_id = excluded.loan_id,
			received_date = excluded.received_date,
			state = excluded.state,
			legal_hold = excluded.legal_hold,
			retention_extension_days = excluded.retention_extension_days,
			updated_at = excluded.updated_at`,
		doc.ID, doc.Name, string(doc.Category), doc.LoanID, toNanos(doc.ReceivedDate),
		string(doc.State), doc.LegalHold, doc.RetentionExtensionDays, updated.UnixNano(),
	)
	if err != nil {
		return document.NewStorageError("sqlite", "put", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return document.NewStorageError("sqlite", "close", err)
	}
	return nil
}

// update runs a conditional UPDATE. No affected row means the document is
// either gone or no longer at expected.
func (s *SQLiteStore) update(ctx context.Context, op, set, id string, expected document.Revision, args ...interface{}) error {
	args = append(args, id, string(expected.State), expected.LegalHold, expected.RetentionExtensionDays)
	res, err := s.db.ExecContext(ctx, set+revisionClause, args...)
	if err != nil {
		return document.NewStorageError("sqlite", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return document.NewStorageError("sqlite", op, err)
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM documents WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return document.ErrNotFound
	}
	if err != nil {
		return document.NewStorageError("sqlite", op, err)
	}
	return document.ErrConflict
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*lifecycle.Document, error) {
	var (
		d                 lifecycle.Document
		category, state   string
		loanID            sql.NullString
		received, updated int64
		hold              bool
	)
	if err := row.Scan(&d.ID, &d.Name, &category, &loanID, &received, &state, &hold,
		&d.RetentionExtensionDays, &updated); err != nil {
		return nil, err
	}
	d.Category = lifecycle.Category(category)
	d.State = lifecycle.State(state)
	d.LoanID = loanID.String
	d.LegalHold = hold
	d.ReceivedDate = fromNanos(received)
	d.UpdatedAt = fromNanos(updated)
	return &d, nil
}

// toNanos maps the zero time to 0 so a missing date survives a round trip.
func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

var _ document.Store = (*SQLiteStore)(nil)
