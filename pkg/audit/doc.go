// Package audit defines the append-only audit log: the record model, the
// query filter and the Store interface implemented in audit/storage.
//
// Records are created once and never edited or deleted by the engine.
// Every lifecycle action appends exactly one record, success or failure.
//
// Filters combine with AND semantics. An empty field places no restriction
// on its dimension:
//
//	f := &audit.Filter{
//	    Start:   &start,
//	    Actions: []audit.Action{audit.ActionDelete},
//	}
//	records, err := store.Query(ctx, f)
package audit
