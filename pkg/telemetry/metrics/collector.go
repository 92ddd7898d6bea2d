package metrics

import (
	"time"

	"mercator-hq/custodian/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every custodian metric and the registry they live on.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	scanMetrics   *ScanMetrics
	actionMetrics *ActionMetrics
	auditMetrics  *AuditMetrics
}

// NewCollector creates a collector and registers its metrics. If registry is
// nil a fresh private registry is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}

	return &Collector{
		config:        cfg,
		registry:      registry,
		scanMetrics:   NewScanMetrics(cfg, registry),
		actionMetrics: NewActionMetrics(cfg, registry),
		auditMetrics:  NewAuditMetrics(cfg, registry),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordScan records a finished lifecycle scan.
//
// Parameters:
//   - outcome: "success", "partial", "cancelled" or "failed"
//   - duration: wall time of the scan
//   - entries: number of worklist entries produced
func (c *Collector) RecordScan(outcome string, duration time.Duration, entries int) {
	if !c.enabled() {
		return
	}
	c.scanMetrics.RecordScan(outcome, duration, entries)
}

// RecordEvaluationError counts a document that failed evaluation.
func (c *Collector) RecordEvaluationError(field string) {
	if !c.enabled() {
		return
	}
	c.scanMetrics.RecordEvaluationError(field)
}

// SetUnpoliced sets the number of documents without an active policy seen by
// the last scan.
func (c *Collector) SetUnpoliced(n int) {
	if !c.enabled() {
		return
	}
	c.scanMetrics.SetUnpoliced(n)
}

// RecordAction records one applied lifecycle action.
//
// Parameters:
//   - action: action kind (e.g. "archive", "delete")
//   - outcome: "applied" or a failure reason such as "hold_active"
//   - duration: time spent in Apply
func (c *Collector) RecordAction(action, outcome string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.actionMetrics.RecordAction(action, outcome, duration)
}

// RecordAuditWrite counts an audit log append.
func (c *Collector) RecordAuditWrite(outcome string) {
	if !c.enabled() {
		return
	}
	c.auditMetrics.RecordWrite(outcome)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
