package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"mercator-hq/custodian/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  config.LoggingConfig
		wantErr bool
	}{
		{name: "json", config: config.LoggingConfig{Level: "info", Format: "json"}},
		{name: "text", config: config.LoggingConfig{Level: "debug", Format: "text"}},
		{name: "empty uses defaults", config: config.LoggingConfig{}},
		{name: "invalid level", config: config.LoggingConfig{Level: "loud"}, wantErr: true},
		{name: "invalid format", config: config.LoggingConfig{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config, &bytes.Buffer{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Fatal("New() returned nil logger")
			}
		})
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "warn", Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn message missing from output")
	}
}

func TestNew_RedactsSensitiveAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("connecting",
		"postgres_dsn", "postgres://user:pw@db/custodian",
		"redis_password", "hunter2",
		"backend", "postgres",
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["postgres_dsn"] != Redacted {
		t.Errorf("postgres_dsn = %v, want redacted", entry["postgres_dsn"])
	}
	if entry["redis_password"] != Redacted {
		t.Errorf("redis_password = %v, want redacted", entry["redis_password"])
	}
	if entry["backend"] != "postgres" {
		t.Errorf("backend = %v, want postgres", entry["backend"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	base, _ := New(config.LoggingConfig{Format: "text"}, &buf)

	if FromContext(context.Background(), base) != base {
		t.Error("FromContext without fields should return the same logger")
	}

	ctx := WithActor(WithRunID(context.Background(), "run-1"), "ops-user")
	FromContext(ctx, base).Info("applied")

	out := buf.String()
	if !strings.Contains(out, "run_id=run-1") || !strings.Contains(out, "actor=ops-user") {
		t.Errorf("context fields missing from %q", out)
	}
	if GetRunID(ctx) != "run-1" || GetActor(ctx) != "ops-user" {
		t.Error("context getters returned wrong values")
	}
}
