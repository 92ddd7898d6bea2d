// Package logging builds the process slog logger from configuration.
//
// The logger writes JSON or text, redacts credential-bearing attributes
// (passwords, secret keys, DSNs) and can pull run and actor identifiers
// from a context:
//
//	logger, err := logging.New(cfg.Telemetry.Logging, os.Stderr)
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRunID(ctx, runID)
//	logging.FromContext(ctx, slog.Default()).Info("scan started")
package logging
