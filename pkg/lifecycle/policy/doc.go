// Package policy stores retention policies and validity rules and hands
// out immutable snapshots of them.
//
// A scan takes one Snapshot when it starts and evaluates every document
// against it. Edits made while the scan runs are visible only to the next
// scan.
//
// Policies are normally loaded from a YAML file:
//
//	policies:
//	  - id: bank-5y
//	    name: Bank statements
//	    category: bank_statements
//	    retention_years: 5
//	    archive_after_days: 180
//	    auto_delete: true
//	    legal_hold_override: true
//	    is_active: true
//	validity:
//	  pay_stub: 30
//
// A FileWatcher can reload the file into a Store when it changes.
package policy
