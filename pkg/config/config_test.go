package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "custodian.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Engine.Workers != DefaultWorkers {
		t.Errorf("Workers = %d, want %d", cfg.Engine.Workers, DefaultWorkers)
	}
	if cfg.Documents.Backend != "sqlite" {
		t.Errorf("Documents.Backend = %q, want sqlite", cfg.Documents.Backend)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("metrics should be enabled by default")
	}
	if cfg.Telemetry.Metrics.Namespace != "custodian" {
		t.Errorf("Namespace = %q, want custodian", cfg.Telemetry.Metrics.Namespace)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
engine:
  workers: 4
  auto_apply: true
documents:
  backend: memory
audit:
  backend: memory
executor:
  initial_backoff: 50ms
telemetry:
  logging:
    level: debug
    format: json
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Engine.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Engine.Workers)
	}
	if !cfg.Engine.AutoApply {
		t.Error("AutoApply should be true")
	}
	if cfg.Documents.Backend != "memory" {
		t.Errorf("Documents.Backend = %q, want memory", cfg.Documents.Backend)
	}
	if cfg.Executor.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", cfg.Executor.InitialBackoff)
	}
	if cfg.Executor.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("MaxAttempts = %d, want default %d", cfg.Executor.MaxAttempts, DefaultMaxAttempts)
	}
	if cfg.Telemetry.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Telemetry.Logging.Format)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown key",
			content: "engine:\n  wrkers: 2\n",
			wantErr: "failed to parse",
		},
		{
			name:    "invalid backend",
			content: "documents:\n  backend: mongo\n",
			wantErr: "documents.backend",
		},
		{
			name:    "postgres without dsn",
			content: "documents:\n  backend: postgres\n",
			wantErr: "documents.postgres_dsn",
		},
		{
			name:    "seed file with sqlite backend",
			content: "documents:\n  backend: sqlite\n  sqlite_path: docs.db\n  seed_file: seed.yaml\n",
			wantErr: "documents.seed_file",
		},
		{
			name:    "bad cron",
			content: "engine:\n  scan_schedule: \"every day\"\n",
			wantErr: "engine.scan_schedule",
		},
		{
			name:    "notify without redis",
			content: "notify:\n  enabled: true\n",
			wantErr: "notify.redis_addr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want os.ErrNotExist", err)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	t.Setenv("CUSTODIAN_DOCUMENTS_BACKEND", "memory")
	t.Setenv("CUSTODIAN_ENGINE_WORKERS", "3")
	t.Setenv("CUSTODIAN_ENGINE_AUTO_APPLY", "true")
	t.Setenv("CUSTODIAN_EXECUTOR_MAX_BACKOFF", "5s")
	t.Setenv("CUSTODIAN_ENGINE_ACTOR_ID", "ops")

	cfg, err := LoadConfigWithEnvOverrides(writeConfig(t, "engine:\n  workers: 10\n"))
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if cfg.Documents.Backend != "memory" {
		t.Errorf("Documents.Backend = %q, want memory", cfg.Documents.Backend)
	}
	if cfg.Engine.Workers != 3 {
		t.Errorf("Workers = %d, want 3 (env wins over file)", cfg.Engine.Workers)
	}
	if !cfg.Engine.AutoApply {
		t.Error("AutoApply should be true")
	}
	if cfg.Executor.MaxBackoff != 5*time.Second {
		t.Errorf("MaxBackoff = %v, want 5s", cfg.Executor.MaxBackoff)
	}
	if cfg.Engine.ActorID != "ops" {
		t.Errorf("ActorID = %q, want ops", cfg.Engine.ActorID)
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("CUSTODIAN_ENGINE_WORKERS", "not-a-number")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}
	if cfg.Engine.Workers != DefaultWorkers {
		t.Errorf("Workers = %d, want default when env is unparseable", cfg.Engine.Workers)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Engine.Workers = 0
	cfg.Audit.Backend = "postgres"
	cfg.Telemetry.Logging.Level = "verbose"

	err := Validate(cfg)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %T, want ValidationError", err)
	}
	if len(verr.Errors) != 3 {
		t.Fatalf("got %d field errors, want 3: %v", len(verr.Errors), verr)
	}

	fields := map[string]bool{}
	for _, fe := range verr.Errors {
		fields[fe.Field] = true
	}
	for _, want := range []string{"engine.workers", "audit.backend", "telemetry.logging.level"} {
		if !fields[want] {
			t.Errorf("missing field error for %s", want)
		}
	}
}

func TestSingleton(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	if GetConfig() != nil {
		t.Fatal("GetConfig() should be nil before SetConfig")
	}

	cfg := NewDefaultConfig()
	SetConfig(cfg)
	if GetConfig() != cfg {
		t.Error("GetConfig() should return the config passed to SetConfig")
	}

	path := writeConfig(t, "engine:\n  workers: 2\n")
	if err := ReloadConfig(path); err != nil {
		t.Fatalf("ReloadConfig() error = %v", err)
	}
	if MustGetConfig().Engine.Workers != 2 {
		t.Errorf("Workers after reload = %d, want 2", MustGetConfig().Engine.Workers)
	}

	if err := ReloadConfig(writeConfig(t, "documents:\n  backend: nope\n")); err == nil {
		t.Error("ReloadConfig() with invalid file should fail")
	}
	if MustGetConfig().Engine.Workers != 2 {
		t.Error("failed reload must keep the previous config")
	}
}
