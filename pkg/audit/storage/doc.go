// Package storage provides audit log backends: MemoryStore for tests and
// SQLiteStore for durable, append-only persistence.
package storage
