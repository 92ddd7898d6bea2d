// Package metrics provides Prometheus metrics for the lifecycle engine.
//
// # Metrics Categories
//
//   - Scan Metrics: scan count by outcome, duration, worklist size,
//     evaluation errors, unpoliced documents
//   - Action Metrics: applied actions by kind and outcome, duration
//   - Audit Metrics: audit log writes by outcome
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordScan("success", time.Since(start), len(worklist.Entries))
//	http.Handle("/metrics", collector.Handler())
//
// A nil *Collector is valid and records nothing, so components can take an
// optional collector without guarding every call.
package metrics
