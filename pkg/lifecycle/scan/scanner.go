package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mercator-hq/custodian/pkg/document"
	"mercator-hq/custodian/pkg/lifecycle"
	"mercator-hq/custodian/pkg/lifecycle/policy"
	"mercator-hq/custodian/pkg/notify"
	"mercator-hq/custodian/pkg/telemetry/logging"
	"mercator-hq/custodian/pkg/telemetry/metrics"
)

// DefaultWorkers is the evaluator pool size when Options.Workers is zero.
const DefaultWorkers = 8

// Options configures a Scanner.
type Options struct {
	Documents  document.Store
	Policies   policy.Source
	Dispatcher notify.Dispatcher
	Metrics    *metrics.Collector
	Workers    int

	// Now defaults to time.Now. It is read once per scan.
	Now func() time.Time
}

// Scanner evaluates the whole document population against a policy
// snapshot. It never mutates documents.
type Scanner struct {
	docs       document.Store
	policies   policy.Source
	dispatcher notify.Dispatcher
	metrics    *metrics.Collector
	workers    int
	now        func() time.Time
	logger     *slog.Logger
}

// NewScanner creates a Scanner.
func NewScanner(opts Options) (*Scanner, error) {
	if opts.Documents == nil {
		return nil, errors.New("scan: document store is required")
	}
	if opts.Policies == nil {
		return nil, errors.New("scan: policy source is required")
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = notify.NopDispatcher{}
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scanner{
		docs:       opts.Documents,
		policies:   opts.Policies,
		dispatcher: opts.Dispatcher,
		metrics:    opts.Metrics,
		workers:    opts.Workers,
		now:        opts.Now,
		logger:     slog.Default().With("component", "lifecycle.scan"),
	}, nil
}

// outcome is the evaluation of one listed document.
type outcome struct {
	done     bool
	decision lifecycle.Decision
	validity lifecycle.ValidityAssessment
	err      error
}

// RunScan evaluates every non-deleted document.
//
// The policy snapshot is taken and validated before any document is read;
// a *lifecycle.ConfigError aborts the scan with a nil worklist. Documents
// that fail evaluation are left out of the worklist and listed in
// Report.Errors. If ctx ends mid-scan, the worklist holds only fully
// evaluated documents, Report.Cancelled is set and the context error is
// returned alongside them.
func (s *Scanner) RunScan(ctx context.Context) (*Worklist, *Report, error) {
	start := time.Now()
	now := s.now()
	scanID := uuid.NewString()
	ctx = logging.WithRunID(ctx, scanID)
	log := logging.FromContext(ctx, s.logger)

	report := &Report{ScanID: scanID, StartedAt: now}
	fail := func(err error) (*Worklist, *Report, error) {
		report.FinishedAt = s.now()
		s.metrics.RecordScan("failed", time.Since(start), 0)
		log.Error("scan aborted", "error", err)
		return nil, report, err
	}

	snap, err := s.policies.Load(ctx)
	if err != nil {
		return fail(err)
	}
	if err := snap.Validate(); err != nil {
		return fail(err)
	}

	docs, err := s.docs.ListActiveDocuments(ctx, "")
	if err != nil {
		return fail(fmt.Errorf("failed to list documents: %w", err))
	}
	report.Listed = len(docs)

	tracker := lifecycle.NewValidityTracker(snap.ValidityRules())
	results := make([]outcome, len(docs))
	runErr := s.fanOut(ctx, len(docs), func(i int) {
		d := docs[i]
		decision, err := lifecycle.Evaluate(d, snap.Policy(d.Category), now)
		o := outcome{done: true, decision: decision, err: err}
		if err == nil {
			o.validity = tracker.Assess(d, now)
		}
		results[i] = o
	})

	worklist := &Worklist{
		ScanID:        scanID,
		GeneratedAt:   now,
		PolicyVersion: snap.Version,
		Entries:       []Entry{},
	}
	s.collect(docs, results, worklist, report)

	if runErr != nil {
		report.Cancelled = true
	}
	report.FinishedAt = s.now()
	s.metrics.RecordScan(report.Outcome(), time.Since(start), len(worklist.Entries))
	s.metrics.SetUnpoliced(len(report.Unpoliced))

	log.Info("scan completed",
		"outcome", report.Outcome(),
		"policy_version", snap.Version,
		"listed", report.Listed,
		"evaluated", report.Evaluated,
		"due", len(worklist.Entries),
		"unpoliced", len(report.Unpoliced),
		"held", len(report.Held),
		"validity_alerts", len(report.ValidityAlerts),
		"errors", len(report.Errors),
		"duration", time.Since(start),
	)

	if runErr != nil {
		return worklist, report, fmt.Errorf("scan cancelled: %w", runErr)
	}

	s.notifyDue(ctx, worklist)
	return worklist, report, nil
}

// fanOut runs fn for every index on a bounded worker pool. It returns the
// context error if ctx ends before every index was handed out.
func (s *Scanner) fanOut(ctx context.Context, n int, fn func(i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	next := make(chan int)

	g.Go(func() error {
		defer close(next)
		for i := 0; i < n; i++ {
			if err := gctx.Err(); err != nil {
				return err
			}
			select {
			case next <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	workers := min(s.workers, max(n, 1))
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range next {
				fn(i)
			}
			return nil
		})
	}

	return g.Wait()
}

// collect folds per-document outcomes into the worklist and report in a
// deterministic order.
func (s *Scanner) collect(docs []*lifecycle.Document, results []outcome, w *Worklist, r *Report) {
	r.Unpoliced = []DocumentRef{}
	r.Held = []DocumentRef{}
	r.ValidityAlerts = []lifecycle.ValidityAssessment{}
	r.Errors = []DocumentError{}

	for i, o := range results {
		if !o.done {
			continue
		}
		d := docs[i]
		r.Evaluated++

		if o.err != nil {
			de := DocumentError{DocumentID: d.ID, Message: o.err.Error()}
			var ee *lifecycle.EvaluationError
			if errors.As(o.err, &ee) {
				de.Field = ee.Field
			}
			r.Errors = append(r.Errors, de)
			s.metrics.RecordEvaluationError(de.Field)
			s.logger.Warn("document excluded from scan", "document_id", d.ID, "field", de.Field, "error", o.err)
			continue
		}

		if o.validity.Alert() {
			r.ValidityAlerts = append(r.ValidityAlerts, o.validity)
		}

		dec := o.decision
		ref := DocumentRef{DocumentID: d.ID, Category: d.Category, State: d.State, Reason: dec.Reason}
		switch {
		case dec.Unpoliced:
			r.Unpoliced = append(r.Unpoliced, ref)
		case dec.Held:
			r.Held = append(r.Held, ref)
		}

		if dec.Due && dec.Action != lifecycle.ActionNone {
			w.Entries = append(w.Entries, Entry{
				Document:             d,
				FromState:            dec.Current,
				ToState:              dec.State,
				Action:               dec.Action,
				DueDate:              dec.DueDate,
				Reason:               dec.Reason,
				RequiresConfirmation: dec.RequiresConfirmation,
				Validity:             o.validity,
			})
		}
	}

	sortEntries(w.Entries)
	sortRefs(r.Unpoliced)
	sortRefs(r.Held)
	sort.Slice(r.ValidityAlerts, func(i, j int) bool {
		return r.ValidityAlerts[i].DocumentID < r.ValidityAlerts[j].DocumentID
	})
	sort.Slice(r.Errors, func(i, j int) bool { return r.Errors[i].DocumentID < r.Errors[j].DocumentID })
}

func (s *Scanner) notifyDue(ctx context.Context, w *Worklist) {
	for _, e := range w.Entries {
		event := notify.Event{
			Type:       notify.EventActionDue,
			DocumentID: e.Document.ID,
			LoanID:     e.Document.LoanID,
			Action:     string(e.Action),
			FromState:  string(e.FromState),
			ToState:    string(e.ToState),
			DueDate:    e.DueDate,
			OccurredAt: w.GeneratedAt,
		}
		if err := s.dispatcher.Dispatch(ctx, event); err != nil {
			s.logger.Warn("failed to dispatch due event", "document_id", e.Document.ID, "error", err)
		}
	}
}
