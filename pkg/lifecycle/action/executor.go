package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/document"
	"mercator-hq/custodian/pkg/lifecycle"
	"mercator-hq/custodian/pkg/lifecycle/policy"
	"mercator-hq/custodian/pkg/notify"
	"mercator-hq/custodian/pkg/telemetry/logging"
	"mercator-hq/custodian/pkg/telemetry/metrics"
)

// AuditTable is the table name recorded on lifecycle audit records.
const AuditTable = "tracked_documents"

// Action is one operator or scheduler request against a single document.
type Action struct {
	Kind       lifecycle.ActionKind
	DocumentID string

	// Days is the extension length for ActionExtend.
	Days int

	// Confirmed authorizes deletion under a policy without auto-delete.
	Confirmed bool

	ActorID string
}

// Result is the outcome of Apply. Err is nil exactly when Success is true.
type Result struct {
	DocumentID string               `json:"document_id"`
	Action     lifecycle.ActionKind `json:"action"`
	Success    bool                 `json:"success"`
	FromState  lifecycle.State      `json:"from_state,omitempty"`
	ToState    lifecycle.State      `json:"to_state,omitempty"`
	AuditID    string               `json:"audit_id,omitempty"`
	Error      string               `json:"error,omitempty"`
	Err        error                `json:"-"`
}

// PolicySource supplies the current policy set.
type PolicySource interface {
	Snapshot() *policy.Snapshot
}

// Options configures an Executor.
type Options struct {
	Documents  document.Store
	Audit      audit.Store
	Policies   PolicySource
	Dispatcher notify.Dispatcher
	Metrics    *metrics.Collector
	Retry      RetryConfig

	// DefaultActor is recorded when an Action carries no ActorID.
	DefaultActor string

	// Now defaults to time.Now.
	Now func() time.Time
}

// Executor applies lifecycle actions. It is safe for concurrent use;
// actions on the same document are serialized.
type Executor struct {
	docs       document.Store
	audit      audit.Store
	policies   PolicySource
	dispatcher notify.Dispatcher
	metrics    *metrics.Collector
	retryCfg   RetryConfig
	actor      string
	now        func() time.Time
	locks      *keyedMutex
	logger     *slog.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(opts Options) (*Executor, error) {
	if opts.Documents == nil {
		return nil, errors.New("action: document store is required")
	}
	if opts.Audit == nil {
		return nil, errors.New("action: audit store is required")
	}
	if opts.Policies == nil {
		return nil, errors.New("action: policy source is required")
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = notify.NopDispatcher{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultActor == "" {
		opts.DefaultActor = "system"
	}

	return &Executor{
		docs:       opts.Documents,
		audit:      opts.Audit,
		policies:   opts.Policies,
		dispatcher: opts.Dispatcher,
		metrics:    opts.Metrics,
		retryCfg:   opts.Retry.withDefaults(),
		actor:      opts.DefaultActor,
		now:        opts.Now,
		locks:      newKeyedMutex(),
		logger:     slog.Default().With("component", "lifecycle.action"),
	}, nil
}

// Apply performs a single action. It returns the Result and, on failure,
// the same error found in Result.Err.
//
// Apply writes exactly one audit record whether the action succeeds or
// fails. The only exception is a context already cancelled once the
// document lock is held, in which case nothing is read or written.
func (e *Executor) Apply(ctx context.Context, a Action) (Result, error) {
	start := time.Now()
	if a.ActorID == "" {
		a.ActorID = e.actor
	}
	ctx = logging.WithActor(ctx, a.ActorID)
	res := Result{DocumentID: a.DocumentID, Action: a.Kind}

	unlock := e.locks.Lock(a.DocumentID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res, err
	}

	now := e.now()
	before, err := e.load(ctx, a.DocumentID)
	if err == nil {
		res.FromState = before.State
		res.ToState = before.State

		var after *lifecycle.Document
		after, err = e.plan(before, a, now)
		if err == nil {
			err = e.commit(ctx, a, before, after, now, &res)
		}
	}

	if err != nil {
		res.Err = e.recordFailure(ctx, a, before, err, now, &res)
		res.Error = res.Err.Error()
	}

	e.finish(ctx, a, &res, time.Since(start))
	return res, res.Err
}

// commit writes after, then its audit record. An audit failure rolls the
// document back to before.
func (e *Executor) commit(ctx context.Context, a Action, before, after *lifecycle.Document, now time.Time, res *Result) error {
	if err := e.write(ctx, before, after); err != nil {
		if errors.Is(err, document.ErrConflict) {
			pe := lifecycle.NewPreconditionError(a.DocumentID, a.Kind, lifecycle.ConcurrentUpdate,
				"document changed since it was read")
			return errors.Join(pe, err)
		}
		return err
	}

	rec := e.newRecord(a, before, now)
	rec.NewValues = documentValues(after)
	rec.NewValues["action"] = string(a.Kind)
	rec.NewValues["outcome"] = "success"

	if err := e.appendAudit(ctx, rec); err != nil {
		if rbErr := e.write(context.WithoutCancel(ctx), after, before); rbErr != nil {
			e.logger.Error("rollback after audit failure did not complete",
				"document_id", a.DocumentID,
				"error", rbErr,
			)
			return errors.Join(err, rbErr)
		}
		return err
	}

	res.Success = true
	res.ToState = after.State
	res.AuditID = rec.ID
	return nil
}

// recordFailure appends the audit record for a rejected or failed action
// and returns the error to report.
func (e *Executor) recordFailure(ctx context.Context, a Action, before *lifecycle.Document, cause error, now time.Time, res *Result) error {
	rec := e.newRecord(a, before, now)
	rec.NewValues = documentValues(before)
	rec.NewValues["action"] = string(a.Kind)
	rec.NewValues["outcome"] = "failure"
	rec.NewValues["error"] = cause.Error()
	var pe *lifecycle.PreconditionError
	if errors.As(cause, &pe) {
		rec.NewValues["reason"] = string(pe.Reason)
	}

	if err := e.appendAudit(context.WithoutCancel(ctx), rec); err != nil {
		return errors.Join(cause, err)
	}
	res.AuditID = rec.ID
	return cause
}

func (e *Executor) finish(ctx context.Context, a Action, res *Result, elapsed time.Duration) {
	outcome := "applied"
	log := logging.FromContext(ctx, e.logger)
	if res.Err != nil {
		outcome = outcomeLabel(res.Err)
		log.Warn("action rejected",
			"action", a.Kind,
			"document_id", a.DocumentID,
			"outcome", outcome,
			"error", res.Err,
		)
	} else {
		log.Info("action applied",
			"action", a.Kind,
			"document_id", a.DocumentID,
			"from_state", res.FromState,
			"to_state", res.ToState,
			"audit_id", res.AuditID,
		)
	}
	e.metrics.RecordAction(string(a.Kind), outcome, elapsed)

	event := notify.Event{
		Type:       notify.EventActionApplied,
		DocumentID: a.DocumentID,
		Action:     string(a.Kind),
		FromState:  string(res.FromState),
		ToState:    string(res.ToState),
		Outcome:    "success",
		OccurredAt: e.now(),
	}
	if res.Err != nil {
		event.Outcome = "failure"
		event.Error = res.Err.Error()
	}
	if err := e.dispatcher.Dispatch(context.WithoutCancel(ctx), event); err != nil {
		log.Warn("failed to dispatch action event", "document_id", a.DocumentID, "error", err)
	}
}

// load fetches the current copy of a document.
func (e *Executor) load(ctx context.Context, id string) (*lifecycle.Document, error) {
	if id == "" {
		return nil, lifecycle.NewPreconditionError(id, "", lifecycle.InvalidArgument, "document id is required")
	}

	var doc *lifecycle.Document
	err := e.retry(ctx, "get", id, func(ctx context.Context) error {
		d, err := e.docs.GetDocument(ctx, id)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if errors.Is(err, document.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", document.ErrNotFound, id)
	}
	return doc, err
}

// plan re-checks preconditions against the freshly loaded document and
// returns the document as it should be after the action.
func (e *Executor) plan(doc *lifecycle.Document, a Action, now time.Time) (*lifecycle.Document, error) {
	p := e.policies.Snapshot().Policy(doc.Category)
	next := doc.Clone()
	reject := func(reason lifecycle.PreconditionReason, format string, args ...any) error {
		return lifecycle.NewPreconditionError(doc.ID, a.Kind, reason, fmt.Sprintf(format, args...))
	}

	switch a.Kind {
	case lifecycle.ActionArchive:
		if doc.State != lifecycle.StateActive && doc.State != lifecycle.StateArchivePending {
			return nil, reject(lifecycle.InvalidState, "cannot archive a document in state %s", doc.State)
		}
		if p == nil {
			return nil, reject(lifecycle.PolicyInactive, "no active policy for category %s", doc.Category)
		}
		if doc.LegalHold && p.LegalHoldOverride {
			return nil, reject(lifecycle.HoldActive, "legal hold suspends archival under policy %s", p.ID)
		}
		next.State = lifecycle.StateArchived

	case lifecycle.ActionDelete:
		if p == nil {
			return nil, reject(lifecycle.PolicyInactive, "no active policy for category %s", doc.Category)
		}
		if end := doc.RetentionEndDate(p); now.Before(end) {
			return nil, reject(lifecycle.RetentionNotElapsed, "retention ends %s", end.UTC().Format(time.DateOnly))
		}
		if doc.State != lifecycle.StateArchived && doc.State != lifecycle.StateDeletePending {
			return nil, reject(lifecycle.InvalidState, "cannot delete a document in state %s", doc.State)
		}
		if doc.LegalHold {
			return nil, reject(lifecycle.HoldActive, "document is under legal hold")
		}
		if !p.AutoDelete && !a.Confirmed {
			return nil, reject(lifecycle.ConfirmationRequired, "policy %s requires confirmed deletion", p.ID)
		}
		next.State = lifecycle.StateDeleted

	case lifecycle.ActionExtend:
		if a.Days <= 0 {
			return nil, reject(lifecycle.InvalidArgument, "extension must be a positive number of days, got %d", a.Days)
		}
		if doc.State == lifecycle.StateDeleted {
			return nil, reject(lifecycle.InvalidState, "cannot extend a deleted document")
		}
		next.RetentionExtensionDays += a.Days
		// A pending state survives only while its shifted threshold is
		// still reached.
		switch doc.State {
		case lifecycle.StateArchivePending:
			if p == nil || now.Before(next.ArchiveDueDate(p)) {
				next.State = lifecycle.StateActive
			}
		case lifecycle.StateDeletePending:
			if p == nil || now.Before(next.RetentionEndDate(p)) {
				next.State = lifecycle.StateArchived
			}
		}

	case lifecycle.ActionPlaceHold:
		if doc.State == lifecycle.StateDeleted {
			return nil, reject(lifecycle.InvalidState, "cannot hold a deleted document")
		}
		next.LegalHold = true

	case lifecycle.ActionReleaseHold:
		next.LegalHold = false

	default:
		return nil, reject(lifecycle.InvalidArgument, "unknown action %q", a.Kind)
	}

	return next, nil
}

// write moves the stored document from before to after, one field at a
// time. Each step is conditional on the revision the previous step left,
// so a document changed by another writer fails with ErrConflict. A failed
// step undoes the steps already written.
func (e *Executor) write(ctx context.Context, before, after *lifecycle.Document) error {
	type step struct {
		op   string
		do   func(context.Context, document.Revision) error
		undo func(context.Context, document.Revision) error
	}
	id := before.ID
	var steps []step

	if after.RetentionExtensionDays != before.RetentionExtensionDays {
		steps = append(steps, step{
			op: "set_retention_extension",
			do: func(ctx context.Context, rev document.Revision) error {
				return e.docs.SetRetentionExtension(ctx, id, rev, after.RetentionExtensionDays)
			},
			undo: func(ctx context.Context, rev document.Revision) error {
				return e.docs.SetRetentionExtension(ctx, id, rev, before.RetentionExtensionDays)
			},
		})
	}
	if after.LegalHold != before.LegalHold {
		steps = append(steps, step{
			op: "set_legal_hold",
			do: func(ctx context.Context, rev document.Revision) error {
				return e.docs.SetLegalHold(ctx, id, rev, after.LegalHold)
			},
			undo: func(ctx context.Context, rev document.Revision) error {
				return e.docs.SetLegalHold(ctx, id, rev, before.LegalHold)
			},
		})
	}
	if after.State != before.State {
		steps = append(steps, step{
			op: "update_state",
			do: func(ctx context.Context, rev document.Revision) error {
				return e.docs.UpdateDocumentState(ctx, id, rev, after.State)
			},
			undo: func(ctx context.Context, rev document.Revision) error {
				return e.docs.UpdateDocumentState(ctx, id, rev, before.State)
			},
		})
	}

	// revs[i] is the stored revision before step i runs.
	revs := []document.Revision{document.RevisionOf(before)}
	for _, s := range steps {
		rev := revs[len(revs)-1]
		switch s.op {
		case "set_retention_extension":
			rev.RetentionExtensionDays = after.RetentionExtensionDays
		case "set_legal_hold":
			rev.LegalHold = after.LegalHold
		case "update_state":
			rev.State = after.State
		}
		revs = append(revs, rev)
	}

	for i, s := range steps {
		err := e.retry(ctx, s.op, id, func(ctx context.Context) error { return s.do(ctx, revs[i]) })
		if err == nil {
			continue
		}
		for j := i - 1; j >= 0; j-- {
			undo := steps[j]
			uerr := e.retry(context.WithoutCancel(ctx), undo.op, id, func(ctx context.Context) error {
				return undo.undo(ctx, revs[j+1])
			})
			if uerr != nil {
				return errors.Join(err, uerr)
			}
		}
		return err
	}
	return nil
}

func (e *Executor) appendAudit(ctx context.Context, rec *audit.Record) error {
	err := e.retry(ctx, "audit_append", rec.RecordID, func(ctx context.Context) error {
		return e.audit.Append(ctx, rec)
	})
	if err != nil {
		e.metrics.RecordAuditWrite("failure")
		return err
	}
	e.metrics.RecordAuditWrite("success")
	return nil
}

func (e *Executor) newRecord(a Action, before *lifecycle.Document, now time.Time) *audit.Record {
	action := audit.ActionUpdate
	if a.Kind == lifecycle.ActionDelete {
		action = audit.ActionDelete
	}
	rec := &audit.Record{
		ID:        uuid.NewString(),
		Timestamp: now,
		ActorID:   a.ActorID,
		Action:    action,
		TableName: AuditTable,
		RecordID:  a.DocumentID,
		RiskScore: riskScores[a.Kind],
	}
	if before != nil {
		rec.OldValues = documentValues(before)
	}
	return rec
}

// riskScores weights audit records by how hard the action is to undo.
var riskScores = map[lifecycle.ActionKind]int{
	lifecycle.ActionArchive:     20,
	lifecycle.ActionDelete:      90,
	lifecycle.ActionExtend:      10,
	lifecycle.ActionPlaceHold:   40,
	lifecycle.ActionReleaseHold: 60,
}

func documentValues(d *lifecycle.Document) map[string]any {
	if d == nil {
		return map[string]any{}
	}
	return map[string]any{
		"state":                    string(d.State),
		"legal_hold":               d.LegalHold,
		"retention_extension_days": d.RetentionExtensionDays,
	}
}

func outcomeLabel(err error) string {
	var pe *lifecycle.PreconditionError
	var perr *lifecycle.PersistenceError
	switch {
	case errors.As(err, &pe):
		return string(pe.Reason)
	case errors.Is(err, document.ErrNotFound):
		return "not_found"
	case errors.As(err, &perr):
		return "persistence_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
