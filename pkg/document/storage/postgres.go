package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mercator-hq/custodian/pkg/document"
	"mercator-hq/custodian/pkg/lifecycle"
)

// PostgresConfig configures the PostgreSQL document store.
type PostgresConfig struct {
	DSN string

	// MaxConns caps the pool size. Default: 8
	MaxConns int32

	// MaxConnIdleTime closes idle connections. Default: 5 minutes
	MaxConnIdleTime time.Duration
}

// PostgresStore implements document.Store on PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore connects to the database and ensures the schema exists.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, document.NewStorageError("postgres", "parse_dsn", err)
	}
	poolCfg.MaxConns = 8
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, document.NewStorageError("postgres", "connect", err)
	}

	s := &PostgresStore{
		pool:   pool,
		logger: slog.Default().With("component", "document.storage.postgres"),
	}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s.logger.Info("document store connected", "max_conns", poolCfg.MaxConns)
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS tracked_documents (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	category TEXT NOT NULL,
	loan_id TEXT,
	received_date TIMESTAMPTZ NOT NULL,
	state TEXT NOT NULL,
	legal_hold BOOLEAN NOT NULL DEFAULT FALSE,
	retention_extension_days INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tracked_documents_state ON tracked_documents(state);
CREATE INDEX IF NOT EXISTS idx_tracked_documents_category ON tracked_documents(category);`
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return document.NewStorageError("postgres", "ensure_schema", err)
	}
	return nil
}

// ListActiveDocuments returns all non-deleted documents ordered by id.
func (s *PostgresStore) ListActiveDocuments(ctx context.Context, category lifecycle.Category) ([]*lifecycle.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+documentColumns+`
		FROM tracked_documents
		WHERE state <> $1 AND ($2 = '' OR category = $2)
		ORDER BY id`, string(lifecycle.StateDeleted), string(category))
	if err != nil {
		return nil, document.NewStorageError("postgres", "list", err)
	}
	defer rows.Close()

	docs := []*lifecycle.Document{}
	for rows.Next() {
		d, err := scanPgDocument(rows)
		if err != nil {
			return nil, document.NewStorageError("postgres", "scan", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, document.NewStorageError("postgres", "list", err)
	}
	return docs, nil
}

// GetDocument returns one document by id.
func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*lifecycle.Document, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM tracked_documents WHERE id = $1`, id)
	d, err := scanPgDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, document.ErrNotFound
	}
	if err != nil {
		return nil, document.NewStorageError("postgres", "get", err)
	}
	return d, nil
}

// UpdateDocumentState sets the lifecycle state of a document.
func (s *PostgresStore) UpdateDocumentState(ctx context.Context, id string, expected document.Revision, state lifecycle.State) error {
	return s.update(ctx, "update_state",
		`UPDATE tracked_documents SET state = $1, updated_at = $2`,
		id, expected, string(state), time.Now().UTC())
}

// SetLegalHold sets the legal hold flag of a document.
func (s *PostgresStore) SetLegalHold(ctx context.Context, id string, expected document.Revision, hold bool) error {
	return s.update(ctx, "set_hold",
		`UPDATE tracked_documents SET legal_hold = $1, updated_at = $2`,
		id, expected, hold, time.Now().UTC())
}

// SetRetentionExtension sets the retention extension of a document.
func (s *PostgresStore) SetRetentionExtension(ctx context.Context, id string, expected document.Revision, days int) error {
	return s.update(ctx, "set_extension",
		`UPDATE tracked_documents SET retention_extension_days = $1, updated_at = $2`,
		id, expected, days, time.Now().UTC())
}

// Put inserts or replaces a document.
func (s *PostgresStore) Put(ctx context.Context, doc *lifecycle.Document) error {
	updated := doc.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tracked_documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			loan_id = EXCLUDED.loan_id,
			received_date = EXCLUDED.received_date,
			state = EXCLUDED.state,
			legal_hold = EXCLUDED.legal_hold,
			retention_extension_days = EXCLUDED.retention_extension_days,
			updated_at = EXCLUDED.updated_at`,
		doc.ID, doc.Name, string(doc.Category), doc.LoanID, doc.ReceivedDate,
		string(doc.State), doc.LegalHold, doc.RetentionExtensionDays, updated,
	)
	if err != nil {
		return document.NewStorageError("postgres", "put", err)
	}
	return nil
}

// Ping checks the pool can reach the server.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// update runs set (which binds $1 and $2) restricted to a document still
// at expected.
func (s *PostgresStore) update(ctx context.Context, op, set, id string, expected document.Revision, args ...any) error {
	query := set + ` WHERE id = $3 AND state = $4 AND legal_hold = $5 AND retention_extension_days = $6`
	args = append(args, id, string(expected.State), expected.LegalHold, expected.RetentionExtensionDays)
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return document.NewStorageError("postgres", op, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	err = s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tracked_documents WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return document.NewStorageError("postgres", op, err)
	}
	if !exists {
		return document.ErrNotFound
	}
	return document.ErrConflict
}

func scanPgDocument(row pgx.Row) (*lifecycle.Document, error) {
	var (
		d               lifecycle.Document
		category, state string
		loanID          *string
	)
	if err := row.Scan(&d.ID, &d.Name, &category, &loanID, &d.ReceivedDate, &state, &d.LegalHold,
		&d.RetentionExtensionDays, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Category = lifecycle.Category(category)
	d.State = lifecycle.State(state)
	if loanID != nil {
		d.LoanID = *loanID
	}
	d.ReceivedDate = d.ReceivedDate.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	return &d, nil
}

var _ document.Store = (*PostgresStore)(nil)
