package config

import "time"

// Default configuration values.
const (
	DefaultScanSchedule = "0 2 * * *"
	DefaultWorkers      = 8
	DefaultActorID      = "custodian"

	DefaultPolicyFile       = "policies.yaml"
	DefaultDebounceInterval = 100 * time.Millisecond

	DefaultDocumentsBackend = "sqlite"
	DefaultDocumentsPath    = "data/documents.db"
	DefaultPostgresMaxConns = 8
	DefaultAuditBackend     = "sqlite"
	DefaultAuditPath        = "data/audit.db"
	DefaultBusyTimeout      = 5 * time.Second

	DefaultMaxAttempts    = 4
	DefaultInitialBackoff = 100 * time.Millisecond
	DefaultMaxBackoff     = 2 * time.Second

	DefaultNotifyQueue        = "lifecycle"
	DefaultNotifyMaxRetry     = 5
	DefaultBreakerMaxFailures = 5
	DefaultBreakerTimeout     = 30 * time.Second

	DefaultExportPrefix = "audit-exports"

	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "custodian"
	DefaultMetricsSubsystem = "lifecycle"
)

// NewDefaultConfig returns a configuration with every default applied.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Telemetry.Metrics.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Engine.ScanSchedule == "" {
		cfg.Engine.ScanSchedule = DefaultScanSchedule
	}
	if cfg.Engine.Workers == 0 {
		cfg.Engine.Workers = DefaultWorkers
	}
	if cfg.Engine.ActorID == "" {
		cfg.Engine.ActorID = DefaultActorID
	}

	if cfg.Policies.File == "" {
		cfg.Policies.File = DefaultPolicyFile
	}
	if cfg.Policies.DebounceInterval == 0 {
		cfg.Policies.DebounceInterval = DefaultDebounceInterval
	}

	if cfg.Documents.Backend == "" {
		cfg.Documents.Backend = DefaultDocumentsBackend
	}
	if cfg.Documents.SQLitePath == "" {
		cfg.Documents.SQLitePath = DefaultDocumentsPath
	}
	if cfg.Documents.PostgresMaxConns == 0 {
		cfg.Documents.PostgresMaxConns = DefaultPostgresMaxConns
	}
	if cfg.Documents.BusyTimeout == 0 {
		cfg.Documents.BusyTimeout = DefaultBusyTimeout
	}

	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.SQLitePath == "" {
		cfg.Audit.SQLitePath = DefaultAuditPath
	}
	if cfg.Audit.BusyTimeout == 0 {
		cfg.Audit.BusyTimeout = DefaultBusyTimeout
	}

	if cfg.Executor.MaxAttempts == 0 {
		cfg.Executor.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Executor.InitialBackoff == 0 {
		cfg.Executor.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.Executor.MaxBackoff == 0 {
		cfg.Executor.MaxBackoff = DefaultMaxBackoff
	}

	if cfg.Notify.Queue == "" {
		cfg.Notify.Queue = DefaultNotifyQueue
	}
	if cfg.Notify.MaxRetry == 0 {
		cfg.Notify.MaxRetry = DefaultNotifyMaxRetry
	}
	if cfg.Notify.BreakerMaxFailures == 0 {
		cfg.Notify.BreakerMaxFailures = DefaultBreakerMaxFailures
	}
	if cfg.Notify.BreakerTimeout == 0 {
		cfg.Notify.BreakerTimeout = DefaultBreakerTimeout
	}

	if cfg.Export.Prefix == "" {
		cfg.Export.Prefix = DefaultExportPrefix
	}

	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
}
