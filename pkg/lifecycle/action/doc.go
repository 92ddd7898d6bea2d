// Package action applies lifecycle actions to single documents.
//
// Every call to Executor.Apply:
//
//  1. takes a per-document lock,
//  2. re-reads the document and its active policy,
//  3. re-checks every precondition (hold, retention elapsed, confirmation),
//  4. writes the new state with bounded retries,
//  5. appends exactly one audit record, rolling the state back if the
//     audit write cannot be made durable.
//
// Rejections are *lifecycle.PreconditionError values carrying a typed
// reason; exhausted retries are *lifecycle.PersistenceError values.
package action
