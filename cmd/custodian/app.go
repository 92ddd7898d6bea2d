package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/audit/query"
	auditstorage "mercator-hq/custodian/pkg/audit/storage"
	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/document"
	docstorage "mercator-hq/custodian/pkg/document/storage"
	"mercator-hq/custodian/pkg/lifecycle/action"
	"mercator-hq/custodian/pkg/lifecycle/policy"
	"mercator-hq/custodian/pkg/lifecycle/scan"
	"mercator-hq/custodian/pkg/notify"
	"mercator-hq/custodian/pkg/telemetry/metrics"
)

// clock is the engine's notion of now.
var clock = time.Now

// app holds the collaborators shared by the commands.
type app struct {
	cfg        *config.Config
	docs       document.Store
	audit      audit.Store
	policies   *policy.Store
	dispatcher notify.Dispatcher
	metrics    *metrics.Collector
	executor   *action.Executor
	query      *query.Engine
}

// newApp opens the stores and loads the policy file. Policy problems are
// returned as *lifecycle.ConfigError.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:      cfg,
		policies: policy.NewStore(),
		metrics:  metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry()),
	}
	if err := a.open(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) open(ctx context.Context) error {
	cfg := a.cfg
	if err := policy.LoadInto(a.policies, cfg.Policies.File); err != nil {
		return err
	}

	docs, err := openDocuments(ctx, cfg.Documents)
	if err != nil {
		return err
	}
	a.docs = docs
	if cfg.Documents.SeedFile != "" {
		n, err := document.LoadSeed(ctx, a.docs, cfg.Documents.SeedFile)
		if err != nil {
			return err
		}
		slog.Info("documents seeded", "path", cfg.Documents.SeedFile, "documents", n)
	}

	log, err := openAudit(cfg.Audit)
	if err != nil {
		return err
	}
	a.audit = log
	a.query = query.NewEngine(a.audit)
	a.dispatcher = openDispatcher(cfg.Notify)

	a.executor, err = action.NewExecutor(action.Options{
		Documents:  a.docs,
		Audit:      a.audit,
		Policies:   a.policies,
		Dispatcher: a.dispatcher,
		Metrics:    a.metrics,
		Retry: action.RetryConfig{
			MaxAttempts:    cfg.Executor.MaxAttempts,
			InitialBackoff: cfg.Executor.InitialBackoff,
			MaxBackoff:     cfg.Executor.MaxBackoff,
		},
		DefaultActor: cfg.Engine.ActorID,
		Now:          clock,
	})
	return err
}

// scanner builds a scanner reading policies from src.
func (a *app) scanner(src policy.Source) (*scan.Scanner, error) {
	return scan.NewScanner(scan.Options{
		Documents:  a.docs,
		Policies:   src,
		Dispatcher: a.dispatcher,
		Metrics:    a.metrics,
		Workers:    a.cfg.Engine.Workers,
		Now:        clock,
	})
}

// Close releases every opened resource.
func (a *app) Close() error {
	var errs []error
	if a.dispatcher != nil {
		errs = append(errs, a.dispatcher.Close())
	}
	if a.audit != nil {
		errs = append(errs, a.audit.Close())
	}
	if a.docs != nil {
		errs = append(errs, a.docs.Close())
	}
	return errors.Join(errs...)
}

func openDocuments(ctx context.Context, cfg config.DocumentsConfig) (document.Store, error) {
	switch cfg.Backend {
	case "memory":
		return docstorage.NewMemoryStore(), nil
	case "sqlite":
		s, err := docstorage.NewSQLiteStore(docstorage.SQLiteConfig{
			Path:        cfg.SQLitePath,
			BusyTimeout: cfg.BusyTimeout,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := docstorage.NewPostgresStore(ctx, docstorage.PostgresConfig{
			DSN:      cfg.PostgresDSN,
			MaxConns: cfg.PostgresMaxConns,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown document backend %q", cfg.Backend)
}

func openAudit(cfg config.AuditConfig) (audit.Store, error) {
	switch cfg.Backend {
	case "memory":
		return auditstorage.NewMemoryStore(), nil
	case "sqlite":
		sc := auditstorage.DefaultSQLiteConfig()
		sc.Path = cfg.SQLitePath
		if cfg.BusyTimeout > 0 {
			sc.BusyTimeout = cfg.BusyTimeout
		}
		s, err := auditstorage.NewSQLiteStore(sc)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown audit backend %q", cfg.Backend)
}

// openDispatcher returns the asynq dispatcher behind a circuit breaker, or
// a no-op dispatcher when notifications are disabled. A broken Redis
// configuration disables notifications instead of failing the command.
func openDispatcher(cfg config.NotifyConfig) notify.Dispatcher {
	if !cfg.Enabled {
		return notify.NopDispatcher{}
	}
	inner, err := notify.NewAsynqDispatcher(notify.AsynqConfig{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		Queue:         cfg.Queue,
		MaxRetry:      cfg.MaxRetry,
	})
	if err != nil {
		slog.Warn("notifications disabled", "error", err)
		return notify.NopDispatcher{}
	}
	return notify.NewBreakerDispatcher(inner, notify.BreakerConfig{
		MaxFailures: cfg.BreakerMaxFailures,
		Timeout:     cfg.BreakerTimeout,
	})
}
