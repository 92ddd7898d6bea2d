// Package server exposes the engine over HTTP while custodian runs in
// serve mode.
//
// Routes:
//
//	GET /healthz       liveness probe
//	GET /readyz        readiness probe (document and audit stores)
//	GET /metrics       Prometheus metrics
//	GET /v1/worklist   latest scan worklist and report
//	GET /v1/audit      audit records; query parameters start, end, action,
//	                   table, actor and limit
//
// Every request gets an X-Request-ID, is logged on completion and is
// protected by a panic recovery handler.
package server
