// Package telemetry groups the observability packages used by custodian.
//
//   - logging: slog logger construction with credential redaction
//   - metrics: Prometheus collector for scans, actions and audit writes
//   - health: liveness and readiness probes
package telemetry
