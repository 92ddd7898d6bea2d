package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// RunIDKey is the context key for scan or apply run identifiers.
	RunIDKey contextKey = "run_id"

	// ActorKey is the context key for the acting user or system.
	ActorKey contextKey = "actor"
)

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// WithActor adds an actor identifier to the context.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// GetActor retrieves the actor identifier from the context.
func GetActor(ctx context.Context) string {
	if actor, ok := ctx.Value(ActorKey).(string); ok {
		return actor
	}
	return ""
}

// FromContext returns logger annotated with the run and actor fields found
// in ctx. The logger is returned unchanged when ctx carries neither.
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	var args []any
	if runID := GetRunID(ctx); runID != "" {
		args = append(args, "run_id", runID)
	}
	if actor := GetActor(ctx); actor != "" {
		args = append(args, "actor", actor)
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}
