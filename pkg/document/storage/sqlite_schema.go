package storage

// SchemaVersion is the current document schema version.
const SchemaVersion = 1

// Schema creates the documents table. Timestamps are stored as Unix
// nanoseconds so ordering and comparisons stay exact.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    category TEXT NOT NULL,
    loan_id TEXT,
    received_date INTEGER NOT NULL,
    state TEXT NOT NULL,
    legal_hold INTEGER NOT NULL DEFAULT 0,
    retention_extension_days INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_state ON documents(state);
CREATE INDEX IF NOT EXISTS idx_documents_category ON documents(category);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`
