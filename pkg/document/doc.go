// Package document defines the document store the lifecycle engine reads
// from and writes transitions to.
//
// The store is the system of record. The engine re-reads documents for
// every scan and every action and never caches them.
//
// Backends live in the storage sub-package: an in-memory store for tests
// and local runs, an embedded SQLite store and a PostgreSQL store.
package document
