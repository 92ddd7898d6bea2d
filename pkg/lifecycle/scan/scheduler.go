package scan

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Hook is called after every scheduled scan that produced a worklist.
type Hook func(ctx context.Context, w *Worklist, r *Report)

// Scheduler runs scans on a cron schedule and keeps the latest result.
type Scheduler struct {
	scanner  *Scanner
	schedule string
	hook     Hook
	cron     *cron.Cron
	logger   *slog.Logger

	mu       sync.Mutex
	running  bool
	latest   *Worklist
	report   *Report
	inFlight sync.Mutex
}

// NewScheduler creates a scheduler for scanner. hook may be nil.
func NewScheduler(scanner *Scanner, schedule string, hook Hook) *Scheduler {
	return &Scheduler{
		scanner:  scanner,
		schedule: schedule,
		hook:     hook,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "lifecycle.scheduler"),
	}
}

// Start registers the cron job and starts the scheduler. Common
// expressions:
//   - "0 2 * * *"    - daily at 2 AM
//   - "0 */6 * * *"  - every 6 hours
//
// An empty schedule leaves the scheduler idle; RunNow still works.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("scan schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.RunNow(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule scan: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("lifecycle scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// RunNow runs one scan immediately. Overlapping runs are serialized.
func (s *Scheduler) RunNow(ctx context.Context) (*Worklist, *Report, error) {
	s.inFlight.Lock()
	defer s.inFlight.Unlock()

	w, r, err := s.scanner.RunScan(ctx)
	if err != nil {
		s.logger.Error("scheduled scan failed", "error", err)
	}
	if w == nil {
		return w, r, err
	}

	s.mu.Lock()
	s.latest, s.report = w, r
	s.mu.Unlock()

	if s.hook != nil && err == nil {
		s.hook(ctx, w, r)
	}
	return w, r, err
}

// Latest returns the most recent worklist and report, or nils before the
// first scan.
func (s *Scheduler) Latest() (*Worklist, *Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.report
}

// Stop stops the scheduler and waits for a running scan to finish. The
// lock is released before waiting; the running scan needs it to store its
// result.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("lifecycle scheduler stopped")
}

// NextRun returns the next scheduled scan time, or nil when idle.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return nil
	}

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
