package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"mercator-hq/custodian/pkg/audit/query"
	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/lifecycle/scan"
	"mercator-hq/custodian/pkg/telemetry/health"
)

// WorklistSource supplies the most recent scan result.
type WorklistSource interface {
	Latest() (*scan.Worklist, *scan.Report)
}

// Deps are the collaborators the routes read from. Metrics may be nil, in
// which case /metrics is not mounted.
type Deps struct {
	Worklists WorklistSource
	Audit     *query.Engine
	Health    *health.Checker
	Metrics   http.Handler
}

// Server is the serve-mode HTTP server.
type Server struct {
	config       config.ServerConfig
	metricsPath  string
	deps         Deps
	httpServer   *http.Server
	logger       *slog.Logger
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a server. metricsPath is where Deps.Metrics is mounted.
func New(cfg config.ServerConfig, metricsPath string, deps Deps) (*Server, error) {
	if deps.Worklists == nil || deps.Audit == nil || deps.Health == nil {
		return nil, errors.New("server: worklist source, audit engine and health checker are required")
	}
	if metricsPath == "" {
		metricsPath = config.DefaultMetricsPath
	}
	return &Server{
		config:      cfg,
		metricsPath: metricsPath,
		deps:        deps,
		logger:      slog.Default().With("component", "server"),
	}, nil
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	r.Get("/healthz", s.deps.Health.LivenessHandler())
	r.Get("/readyz", s.deps.Health.ReadinessHandler())
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, s.metricsPath, s.deps.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/worklist", s.handleWorklist)
		r.Get("/audit", s.handleAudit)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no route for "+r.URL.Path)
	})
	return r
}

// Start serves until ctx is cancelled or the listener fails, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "address", s.config.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown gracefully stops the server within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		srv := s.httpServer
		running := s.isRunning
		s.mu.Unlock()
		if !running || srv == nil {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx := ctx
		if s.config.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
			defer cancel()
		}

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("http server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is accepting connections.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
