package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values and validates the result. Environment variables
// are not consulted; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration and applies defaults. Unknown keys are
// rejected. The result is not validated.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	cfg.Telemetry.Metrics.Enabled = true

	if len(data) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow CUSTODIAN_SECTION_FIELD
// (e.g. CUSTODIAN_DOCUMENTS_BACKEND) and always take precedence over the file.
//
// An empty path starts from NewDefaultConfig instead of reading a file.
// Credential fields may be env: or file: secret references; see
// ResolveSecret.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = NewDefaultConfig()
	} else {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg)

	if err := resolveSecrets(cfg); err != nil {
		return nil, fmt.Errorf("failed to resolve secrets: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies CUSTODIAN_* environment variables to cfg.
// Values that fail to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Engine
	envString("CUSTODIAN_ENGINE_SCAN_SCHEDULE", &cfg.Engine.ScanSchedule)
	envInt("CUSTODIAN_ENGINE_WORKERS", &cfg.Engine.Workers)
	envBool("CUSTODIAN_ENGINE_AUTO_APPLY", &cfg.Engine.AutoApply)
	envString("CUSTODIAN_ENGINE_ACTOR_ID", &cfg.Engine.ActorID)

	// Policies
	envString("CUSTODIAN_POLICIES_FILE", &cfg.Policies.File)
	envBool("CUSTODIAN_POLICIES_WATCH", &cfg.Policies.Watch)
	envDuration("CUSTODIAN_POLICIES_DEBOUNCE_INTERVAL", &cfg.Policies.DebounceInterval)

	// Documents
	envString("CUSTODIAN_DOCUMENTS_BACKEND", &cfg.Documents.Backend)
	envString("CUSTODIAN_DOCUMENTS_SQLITE_PATH", &cfg.Documents.SQLitePath)
	envString("CUSTODIAN_DOCUMENTS_POSTGRES_DSN", &cfg.Documents.PostgresDSN)
	envString("CUSTODIAN_DOCUMENTS_SEED_FILE", &cfg.Documents.SeedFile)

	// Audit
	envString("CUSTODIAN_AUDIT_BACKEND", &cfg.Audit.Backend)
	envString("CUSTODIAN_AUDIT_SQLITE_PATH", &cfg.Audit.SQLitePath)

	// Executor
	envInt("CUSTODIAN_EXECUTOR_MAX_ATTEMPTS", &cfg.Executor.MaxAttempts)
	envDuration("CUSTODIAN_EXECUTOR_INITIAL_BACKOFF", &cfg.Executor.InitialBackoff)
	envDuration("CUSTODIAN_EXECUTOR_MAX_BACKOFF", &cfg.Executor.MaxBackoff)

	// Notify
	envBool("CUSTODIAN_NOTIFY_ENABLED", &cfg.Notify.Enabled)
	envString("CUSTODIAN_NOTIFY_REDIS_ADDR", &cfg.Notify.RedisAddr)
	envString("CUSTODIAN_NOTIFY_REDIS_PASSWORD", &cfg.Notify.RedisPassword)
	envInt("CUSTODIAN_NOTIFY_REDIS_DB", &cfg.Notify.RedisDB)
	envString("CUSTODIAN_NOTIFY_QUEUE", &cfg.Notify.Queue)

	// Export
	envString("CUSTODIAN_EXPORT_ENDPOINT", &cfg.Export.Endpoint)
	envString("CUSTODIAN_EXPORT_ACCESS_KEY", &cfg.Export.AccessKey)
	envString("CUSTODIAN_EXPORT_SECRET_KEY", &cfg.Export.SecretKey)
	envString("CUSTODIAN_EXPORT_REGION", &cfg.Export.Region)
	envString("CUSTODIAN_EXPORT_BUCKET", &cfg.Export.Bucket)
	envBool("CUSTODIAN_EXPORT_USE_SSL", &cfg.Export.UseSSL)

	// Server
	envString("CUSTODIAN_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)

	// Telemetry
	envString("CUSTODIAN_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("CUSTODIAN_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("CUSTODIAN_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
