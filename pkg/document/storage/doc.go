// Package storage provides document store backends.
//
//   - MemoryStore: map backed, for tests and local runs
//   - SQLiteStore: embedded database (modernc.org/sqlite, no cgo)
//   - PostgresStore: shared database through a pgx connection pool
//
// Every backend returns copies, so callers may modify returned documents
// freely.
package storage
