package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "documents.backend").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration. All field errors are
// collected and returned together in a ValidationError.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validatePolicies(&cfg.Policies)...)
	errs = append(errs, validateDocuments(&cfg.Documents)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateExecutor(&cfg.Executor)...)
	errs = append(errs, validateNotify(&cfg.Notify)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateEngine(cfg *EngineConfig) []FieldError {
	var errs []FieldError

	if cfg.ScanSchedule != "" {
		if _, err := cron.ParseStandard(cfg.ScanSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "engine.scan_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}
	if cfg.Workers < 1 {
		errs = append(errs, FieldError{
			Field:   "engine.workers",
			Message: "workers must be at least 1",
		})
	}
	if cfg.ActorID == "" {
		errs = append(errs, FieldError{
			Field:   "engine.actor_id",
			Message: "actor id is required",
		})
	}

	return errs
}

func validatePolicies(cfg *PolicyConfig) []FieldError {
	var errs []FieldError

	if cfg.File == "" {
		errs = append(errs, FieldError{
			Field:   "policies.file",
			Message: "policy file is required",
		})
	}
	if cfg.DebounceInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "policies.debounce_interval",
			Message: "debounce interval must be non-negative",
		})
	}

	return errs
}

func validateDocuments(cfg *DocumentsConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLitePath == "" {
			errs = append(errs, FieldError{
				Field:   "documents.sqlite_path",
				Message: "sqlite path is required when backend is sqlite",
			})
		}
	case "postgres":
		if cfg.PostgresDSN == "" {
			errs = append(errs, FieldError{
				Field:   "documents.postgres_dsn",
				Message: "postgres dsn is required when backend is postgres",
			})
		}
		if cfg.PostgresMaxConns < 1 {
			errs = append(errs, FieldError{
				Field:   "documents.postgres_max_conns",
				Message: "max conns must be at least 1",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "documents.backend",
			Message: fmt.Sprintf("invalid backend %q (must be memory, sqlite, or postgres)", cfg.Backend),
		})
	}

	// Seeding a persistent store on every start would overwrite holds and
	// states written since.
	if cfg.SeedFile != "" && cfg.Backend != "memory" {
		errs = append(errs, FieldError{
			Field:   "documents.seed_file",
			Message: "seed file is only supported with the memory backend",
		})
	}

	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLitePath == "" {
			errs = append(errs, FieldError{
				Field:   "audit.sqlite_path",
				Message: "sqlite path is required when backend is sqlite",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "audit.backend",
			Message: fmt.Sprintf("invalid backend %q (must be memory or sqlite)", cfg.Backend),
		})
	}

	return errs
}

func validateExecutor(cfg *ExecutorConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxAttempts < 1 {
		errs = append(errs, FieldError{
			Field:   "executor.max_attempts",
			Message: "max attempts must be at least 1",
		})
	}
	if cfg.InitialBackoff < 0 {
		errs = append(errs, FieldError{
			Field:   "executor.initial_backoff",
			Message: "initial backoff must be non-negative",
		})
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		errs = append(errs, FieldError{
			Field:   "executor.max_backoff",
			Message: "max backoff must not be less than initial backoff",
		})
	}

	return errs
}

func validateNotify(cfg *NotifyConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}

	var errs []FieldError
	if cfg.RedisAddr == "" {
		errs = append(errs, FieldError{
			Field:   "notify.redis_addr",
			Message: "redis address is required when notifications are enabled",
		})
	}
	if cfg.Queue == "" {
		errs = append(errs, FieldError{
			Field:   "notify.queue",
			Message: "queue is required",
		})
	}
	if cfg.MaxRetry < 0 {
		errs = append(errs, FieldError{
			Field:   "notify.max_retry",
			Message: "max retry must be non-negative",
		})
	}
	return errs
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn, or error)", cfg.Logging.Level),
		})
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	return errs
}
