package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/lifecycle/policy"
	"mercator-hq/custodian/pkg/lifecycle/scan"
	"mercator-hq/custodian/pkg/server"
	"mercator-hq/custodian/pkg/telemetry/health"
)

var serveFlags struct {
	listenAddress string
	scanOnStart   bool
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled scans and the HTTP endpoints",
	Long: `Run the lifecycle engine as a long-lived process.

Scans run on engine.scan_schedule (cron syntax). With engine.auto_apply the
worklist of each scan is applied; deletions that need manual confirmation are
never applied automatically. With policies.watch the policy file is reloaded
when it changes on disk; otherwise it is re-read at the start of every scan.
SIGHUP reloads the config file; engine.auto_apply and engine.actor_id take
effect from the next scan, other settings need a restart.

Endpoints: /healthz, /readyz, /metrics, /v1/worklist, /v1/audit.

Examples:
  custodian serve
  custodian serve --listen 0.0.0.0:8080 --scan-on-start=false
  custodian serve --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().BoolVar(&serveFlags.scanOnStart, "scan-on-start", true, "run one scan before waiting for the schedule")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config and policies without starting")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if serveFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "configuration and policies are valid")
		return nil
	}

	var source policy.Source = policy.NewFileSource(cfg.Policies.File, a.policies)
	var watcher *policy.FileWatcher
	if cfg.Policies.Watch {
		watcher, err = policy.NewFileWatcher(cfg.Policies.File, a.policies, cfg.Policies.DebounceInterval)
		if err != nil {
			return err
		}
		defer watcher.Stop()
		source = a.policies
	}

	scanner, err := a.scanner(source)
	if err != nil {
		return err
	}
	scheduler := scan.NewScheduler(scanner, cfg.Engine.ScanSchedule, autoApplyHook(a))

	checker := health.New(0)
	checker.RegisterCheck("documents", a.docs.Ping)
	checker.RegisterCheck("audit", func(ctx context.Context) error {
		_, err := a.audit.Count(ctx, &audit.Filter{})
		return err
	})
	checker.RegisterCheck("policies", func(context.Context) error {
		return a.policies.Snapshot().Validate()
	})

	var metricsHandler http.Handler
	if cfg.Telemetry.Metrics.Enabled {
		metricsHandler = a.metrics.Handler()
	}
	srv, err := server.New(cfg.Server, cfg.Telemetry.Metrics.Path, server.Deps{
		Worklists: scheduler,
		Audit:     a.query,
		Health:    checker,
		Metrics:   metricsHandler,
	})
	if err != nil {
		return err
	}

	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx) })
	g.Go(func() error {
		reloadOnHangup(gctx, hangup, configPath)
		return nil
	})
	if watcher != nil {
		g.Go(func() error { return watcher.Watch(gctx) })
	}
	g.Go(func() error {
		if serveFlags.scanOnStart {
			// Scan failures are logged by the scheduler and reported on
			// /v1/worklist; they do not stop the server.
			_, _, _ = scheduler.RunNow(gctx)
		}
		if err := scheduler.Start(gctx); err != nil {
			return err
		}
		if next := scheduler.NextRun(); next != nil {
			slog.Info("next scheduled scan", "at", next.Format(time.RFC3339))
		}
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})

	slog.Info("custodian serving",
		"listen", cfg.Server.ListenAddress,
		"schedule", cfg.Engine.ScanSchedule,
		"auto_apply", cfg.Engine.AutoApply,
		"watch_policies", cfg.Policies.Watch,
	)
	return g.Wait()
}

// autoApplyHook applies each scheduled worklist while engine.auto_apply is
// set in the current global config. Manual deletions are left for an
// operator.
func autoApplyHook(a *app) scan.Hook {
	logger := slog.Default().With("component", "lifecycle.autoapply")
	return func(ctx context.Context, w *scan.Worklist, r *scan.Report) {
		engine := config.MustGetConfig().Engine
		if !engine.AutoApply {
			return
		}
		actions := w.Actions(engine.ActorID, false)
		if len(actions) == 0 {
			return
		}
		batch := a.executor.ApplyBatch(ctx, actions)
		logger.Info("worklist applied",
			"scan_id", w.ScanID,
			"applied", batch.Applied,
			"failed", batch.Failed,
			"skipped", batch.Skipped,
		)
	}
}

// reloadOnHangup reloads the global config from path on every signal until
// ctx ends. A failed reload keeps the running config.
func reloadOnHangup(ctx context.Context, hangup <-chan os.Signal, path string) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hangup:
			if err := config.ReloadConfig(path); err != nil {
				slog.Warn("config reload failed, keeping current config", "path", path, "error", err)
				continue
			}
			engine := config.MustGetConfig().Engine
			slog.Info("configuration reloaded", "path", path, "auto_apply", engine.AutoApply, "actor_id", engine.ActorID)
		}
	}
}
