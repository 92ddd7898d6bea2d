// Custodian is the document compliance and lifecycle engine for mortgage
// loan files.
//
// It evaluates tracked documents against retention policies, schedules
// archival and deletion, enforces legal holds, reports underwriting
// validity and keeps an append-only audit log of every change.
//
// Usage:
//
//	# Build the worklist of due lifecycle actions
//	custodian scan
//
//	# Build the worklist and apply it, confirming manual deletes
//	custodian scan --apply --confirm
//
//	# Apply a single action
//	custodian apply extend --id doc-123 --days 90
//
//	# Place a legal hold
//	custodian hold --id doc-123
//
//	# Query and export the audit log
//	custodian query-audit --start 2026-01-01 --end 2026-01-31 --action DELETE
//	custodian export-audit --format csv --file audit.csv
//
//	# Run the scheduler with HTTP health, metrics and worklist endpoints
//	custodian serve
//
// Exit codes: 0 success, 1 partial failure, 2 fatal configuration error.
package main

func main() {
	Execute()
}
