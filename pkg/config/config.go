package config

import "time"

// Config is the root configuration for custodian.
type Config struct {
	// Engine controls scanning and automatic application.
	Engine EngineConfig `yaml:"engine"`

	// Policies locates the retention policy file.
	Policies PolicyConfig `yaml:"policies"`

	// Documents selects the document store backend.
	Documents DocumentsConfig `yaml:"documents"`

	// Audit selects the audit log backend.
	Audit AuditConfig `yaml:"audit"`

	// Executor controls retry behavior for store writes.
	Executor ExecutorConfig `yaml:"executor"`

	// Notify configures the notification dispatcher.
	Notify NotifyConfig `yaml:"notify"`

	// Export configures the optional export bucket.
	Export ExportConfig `yaml:"export"`

	// Server configures the HTTP surface of serve mode.
	Server ServerConfig `yaml:"server"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EngineConfig controls scans.
type EngineConfig struct {
	// ScanSchedule is a standard cron expression for periodic scans in
	// serve mode. Empty disables periodic scans.
	// Default: "0 2 * * *"
	ScanSchedule string `yaml:"scan_schedule"`

	// Workers is the number of concurrent evaluators per scan.
	// Default: 8
	Workers int `yaml:"workers"`

	// AutoApply applies due actions that need no confirmation after each
	// scheduled scan.
	// Default: false
	AutoApply bool `yaml:"auto_apply"`

	// ActorID is recorded on audit records written by scheduled runs.
	// Default: "custodian"
	ActorID string `yaml:"actor_id"`
}

// PolicyConfig locates policy definitions.
type PolicyConfig struct {
	// File is the YAML policy file.
	// Default: "policies.yaml"
	File string `yaml:"file"`

	// Watch reloads the file on change in serve mode.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval collapses bursts of file events.
	// Default: 100ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// DocumentsConfig selects the document store.
type DocumentsConfig struct {
	// Backend is one of "memory", "sqlite", "postgres".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLitePath is the database file for the sqlite backend.
	// Default: "data/documents.db"
	SQLitePath string `yaml:"sqlite_path"`

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string `yaml:"postgres_dsn"`

	// PostgresMaxConns caps the postgres pool size.
	// Default: 8
	PostgresMaxConns int32 `yaml:"postgres_max_conns"`

	// SeedFile is an optional YAML file of documents loaded at startup. It
	// is only accepted with the memory backend.
	SeedFile string `yaml:"seed_file"`

	// BusyTimeout bounds SQLite lock waits.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// AuditConfig selects the audit log store.
type AuditConfig struct {
	// Backend is one of "memory", "sqlite".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLitePath is the audit database file.
	// Default: "data/audit.db"
	SQLitePath string `yaml:"sqlite_path"`

	// BusyTimeout bounds SQLite lock waits.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// ExecutorConfig bounds retries of store writes.
type ExecutorConfig struct {
	// MaxAttempts is the total number of tries per write.
	// Default: 4
	MaxAttempts int `yaml:"max_attempts"`

	// InitialBackoff is the first retry delay.
	// Default: 100ms
	InitialBackoff time.Duration `yaml:"initial_backoff"`

	// MaxBackoff caps the retry delay.
	// Default: 2s
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// NotifyConfig configures event dispatch.
type NotifyConfig struct {
	// Enabled turns on event dispatch.
	// Default: false
	Enabled bool `yaml:"enabled"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// Queue is the asynq queue name.
	// Default: "lifecycle"
	Queue string `yaml:"queue"`

	// MaxRetry is the consumer retry budget per event.
	// Default: 5
	MaxRetry int `yaml:"max_retry"`

	// BreakerMaxFailures opens the circuit after this many consecutive failures.
	// Default: 5
	BreakerMaxFailures uint32 `yaml:"breaker_max_failures"`

	// BreakerTimeout is how long the circuit stays open.
	// Default: 30s
	BreakerTimeout time.Duration `yaml:"breaker_timeout"`
}

// ExportConfig configures the S3-compatible export target.
type ExportConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`

	// Prefix is prepended to uploaded object keys.
	// Default: "audit-exports"
	Prefix string `yaml:"prefix"`
}

// ServerConfig configures the HTTP server used by serve mode.
type ServerConfig struct {
	// ListenAddress is the host:port to bind.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout. Default: 15s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout. Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig groups logging and metrics.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "custodian"
	Namespace string `yaml:"namespace"`

	// Subsystem is the second metric name component.
	// Default: "lifecycle"
	Subsystem string `yaml:"subsystem"`
}
