package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/custodian/pkg/audit"
)

// SQLiteConfig contains configuration for the SQLite audit backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 4,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements audit.Store using SQLite. Appends use synchronous
// FULL so a record is on disk before Append returns.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens the audit database and initializes its schema.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 4
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5 * time.Second
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=%d",
		config.Path, config.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite audit store initialized", "path", config.Path)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion, time.Now().UnixNano()); err != nil {
		return audit.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return audit.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Append writes one record.
func (s *SQLiteStore) Append(ctx context.Context, record *audit.Record) error {
	oldValues, err := marshalValues(record.OldValues)
	if err != nil {
		return audit.NewStorageError("sqlite", "append", err)
	}
	newValues, err := marshalValues(record.NewValues)
	if err != nil {
		return audit.NewStorageError("sqlite", "append", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, timestamp, actor_id, action, table_name, record_id, old_values, new_values, risk_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Timestamp.UnixNano(), record.ActorID, string(record.Action),
		record.TableName, record.RecordID, oldValues, newValues, record.RiskScore,
	)
	if err != nil {
		return audit.NewStorageError("sqlite", "append", err)
	}
	return nil
}

// Query returns matching records ordered by timestamp then id.
func (s *SQLiteStore) Query(ctx context.Context, filter *audit.Filter) ([]*audit.Record, error) {
	where, args := buildWhereClause(filter)

	q := `SELECT id, timestamp, actor_id, action, table_name, record_id, old_values, new_values, risk_score FROM audit_log`
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY timestamp ASC, id ASC"
	if filter != nil && filter.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*audit.Record{}
	for rows.Next() {
		var (
			r                audit.Record
			ts               int64
			action           string
			oldJSON, newJSON sql.NullString
		)
		if err := rows.Scan(&r.ID, &ts, &r.ActorID, &action, &r.TableName, &r.RecordID, &oldJSON, &newJSON, &r.RiskScore); err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		r.Timestamp = time.Unix(0, ts).UTC()
		r.Action = audit.Action(action)
		if r.OldValues, err = unmarshalValues(oldJSON); err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		if r.NewValues, err = unmarshalValues(newJSON); err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// Count returns the number of matching records.
func (s *SQLiteStore) Count(ctx context.Context, filter *audit.Filter) (int64, error) {
	where, args := buildWhereClause(filter)
	q := "SELECT COUNT(*) FROM audit_log"
	if where != "" {
		q += " WHERE " + where
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, audit.NewStorageError("sqlite", "count", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite audit store closed")
	return nil
}

// buildWhereClause builds an AND-joined WHERE clause from the filter.
func buildWhereClause(f *audit.Filter) (string, []interface{}) {
	if f == nil {
		return "", nil
	}

	var conditions []string
	var args []interface{}

	if f.Start != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, f.Start.UnixNano())
	}
	if f.End != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, f.End.UnixNano())
	}
	if len(f.Actions) > 0 {
		conditions = append(conditions, "action IN ("+placeholders(len(f.Actions))+")")
		for _, a := range f.Actions {
			args = append(args, string(a))
		}
	}
	if len(f.Tables) > 0 {
		conditions = append(conditions, "table_name IN ("+placeholders(len(f.Tables))+")")
		for _, t := range f.Tables {
			args = append(args, t)
		}
	}
	if f.ActorID != "" {
		conditions = append(conditions, "actor_id = ?")
		args = append(args, f.ActorID)
	}

	return strings.Join(conditions, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func marshalValues(m map[string]any) (interface{}, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func unmarshalValues(s sql.NullString) (map[string]any, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil, err
	}
	return m, nil
}

var _ audit.Store = (*SQLiteStore)(nil)
