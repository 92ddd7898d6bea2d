// Package scan re-evaluates the document population and builds the
// worklist of due lifecycle actions.
//
// A scan reads the policy snapshot once, lists every non-deleted document
// and evaluates them on a bounded worker pool. The worklist is ordered by
// due date then document id, so two scans over unchanged data at the same
// instant produce identical entries. Scheduler runs scans on a cron
// schedule for serve mode.
package scan
