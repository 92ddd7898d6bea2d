// Package health runs liveness and readiness checks for serve mode.
//
// Components register a CheckFunc under a name (the document store, the
// audit store, the policy snapshot). Readiness runs every check
// concurrently with a per-check timeout and reports 503 when any fails.
package health
