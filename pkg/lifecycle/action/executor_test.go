package action

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/custodian/pkg/audit"
	auditstorage "mercator-hq/custodian/pkg/audit/storage"
	"mercator-hq/custodian/pkg/document"
	docstorage "mercator-hq/custodian/pkg/document/storage"
	"mercator-hq/custodian/pkg/lifecycle"
	"mercator-hq/custodian/pkg/lifecycle/policy"
	"mercator-hq/custodian/pkg/notify"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return testNow.Add(-time.Duration(n) * lifecycle.Day)
}

func testPolicies(t *testing.T) *policy.Store {
	t.Helper()
	store := policy.NewStore()
	err := store.Replace([]lifecycle.RetentionPolicy{
		{
			ID: "pol-bank", Name: "Bank statements", Category: lifecycle.CategoryBankStatements,
			RetentionYears: 5, ArchiveAfterDays: 180, AutoDelete: true, LegalHoldOverride: true, IsActive: true,
		},
		{
			ID: "pol-pay", Name: "Pay stubs", Category: lifecycle.CategoryPayStub,
			RetentionYears: 1, ArchiveAfterDays: 30, AutoDelete: false, LegalHoldOverride: false, IsActive: true,
		},
	}, nil)
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	return store
}

type fixture struct {
	docs       *docstorage.MemoryStore
	audit      *auditstorage.MemoryStore
	dispatcher *notify.MemoryDispatcher
	executor   *Executor
}

func newFixture(t *testing.T, docs ...*lifecycle.Document) *fixture {
	t.Helper()
	f := &fixture{
		docs:       docstorage.NewMemoryStore(),
		audit:      auditstorage.NewMemoryStore(),
		dispatcher: &notify.MemoryDispatcher{},
	}
	for _, d := range docs {
		if err := f.docs.Put(context.Background(), d); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	f.executor = f.build(t, f.docs, f.audit)
	return f
}

func (f *fixture) build(t *testing.T, docs document.Store, log audit.Store) *Executor {
	t.Helper()
	e, err := NewExecutor(Options{
		Documents:  docs,
		Audit:      log,
		Policies:   testPolicies(t),
		Dispatcher: f.dispatcher,
		Retry:      RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond},
		Now:        func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	return e
}

func (f *fixture) state(t *testing.T, id string) *lifecycle.Document {
	t.Helper()
	d, err := f.docs.GetDocument(context.Background(), id)
	if err != nil {
		t.Fatalf("GetDocument(%s) error = %v", id, err)
	}
	return d
}

func (f *fixture) records(t *testing.T) []*audit.Record {
	t.Helper()
	recs, err := f.audit.Query(context.Background(), &audit.Filter{})
	if err != nil {
		t.Fatalf("audit Query() error = %v", err)
	}
	return recs
}

func doc(id string, c lifecycle.Category, received time.Time, state lifecycle.State) *lifecycle.Document {
	return &lifecycle.Document{ID: id, Name: id + ".pdf", Category: c, LoanID: "loan-1", ReceivedDate: received, State: state}
}

func TestApply_Preconditions(t *testing.T) {
	fiveYearsOneDay := 5*lifecycle.DaysPerRetentionYear + 1

	tests := []struct {
		name       string
		doc        *lifecycle.Document
		action     Action
		wantReason lifecycle.PreconditionReason
		wantState  lifecycle.State
	}{
		{
			name:      "archive active document",
			doc:       doc("d1", lifecycle.CategoryBankStatements, daysAgo(200), lifecycle.StateActive),
			action:    Action{Kind: lifecycle.ActionArchive},
			wantState: lifecycle.StateArchived,
		},
		{
			name:      "archive pending document",
			doc:       doc("d1", lifecycle.CategoryBankStatements, daysAgo(200), lifecycle.StateArchivePending),
			action:    Action{Kind: lifecycle.ActionArchive},
			wantState: lifecycle.StateArchived,
		},
		{
			name: "archive held document under override policy",
			doc: func() *lifecycle.Document {
				d := doc("d1", lifecycle.CategoryBankStatements, daysAgo(200), lifecycle.StateActive)
				d.LegalHold = true
				return d
			}(),
			action:     Action{Kind: lifecycle.ActionArchive},
			wantReason: lifecycle.HoldActive,
			wantState:  lifecycle.StateActive,
		},
		{
			name: "archive held document without override",
			doc: func() *lifecycle.Document {
				d := doc("d1", lifecycle.CategoryPayStub, daysAgo(40), lifecycle.StateActive)
				d.LegalHold = true
				return d
			}(),
			action:    Action{Kind: lifecycle.ActionArchive},
			wantState: lifecycle.StateArchived,
		},
		{
			name:       "archive already archived",
			doc:        doc("d1", lifecycle.CategoryBankStatements, daysAgo(200), lifecycle.StateArchived),
			action:     Action{Kind: lifecycle.ActionArchive},
			wantReason: lifecycle.InvalidState,
			wantState:  lifecycle.StateArchived,
		},
		{
			name:       "archive unpoliced category",
			doc:        doc("d1", lifecycle.CategoryAppraisal, daysAgo(200), lifecycle.StateActive),
			action:     Action{Kind: lifecycle.ActionArchive},
			wantReason: lifecycle.PolicyInactive,
			wantState:  lifecycle.StateActive,
		},
		{
			name:      "delete after retention with auto delete",
			doc:       doc("d1", lifecycle.CategoryBankStatements, daysAgo(fiveYearsOneDay), lifecycle.StateArchived),
			action:    Action{Kind: lifecycle.ActionDelete},
			wantState: lifecycle.StateDeleted,
		},
		{
			name:       "delete before retention elapsed",
			doc:        doc("d1", lifecycle.CategoryBankStatements, daysAgo(200), lifecycle.StateArchived),
			action:     Action{Kind: lifecycle.ActionDelete},
			wantReason: lifecycle.RetentionNotElapsed,
			wantState:  lifecycle.StateArchived,
		},
		{
			name: "delete before retention elapsed while held",
			doc: func() *lifecycle.Document {
				d := doc("d1", lifecycle.CategoryBankStatements, daysAgo(200), lifecycle.StateArchived)
				d.LegalHold = true
				return d
			}(),
			action:     Action{Kind: lifecycle.ActionDelete},
			wantReason: lifecycle.RetentionNotElapsed,
			wantState:  lifecycle.StateArchived,
		},
		{
			name: "delete held document",
			doc: func() *lifecycle.Document {
				d := doc("d1", lifecycle.CategoryPayStub, daysAgo(400), lifecycle.StateArchived)
				d.LegalHold = true
				return d
			}(),
			action:     Action{Kind: lifecycle.ActionDelete, Confirmed: true},
			wantReason: lifecycle.HoldActive,
			wantState:  lifecycle.StateArchived,
		},
		{
			name:       "delete without confirmation under manual policy",
			doc:        doc("d1", lifecycle.CategoryPayStub, daysAgo(400), lifecycle.StateArchived),
			action:     Action{Kind: lifecycle.ActionDelete},
			wantReason: lifecycle.ConfirmationRequired,
			wantState:  lifecycle.StateArchived,
		},
		{
			name:      "delete confirmed under manual policy",
			doc:       doc("d1", lifecycle.CategoryPayStub, daysAgo(400), lifecycle.StateArchived),
			action:    Action{Kind: lifecycle.ActionDelete, Confirmed: true},
			wantState: lifecycle.StateDeleted,
		},
		{
			name:       "delete active document",
			doc:        doc("d1", lifecycle.CategoryPayStub, daysAgo(400), lifecycle.StateActive),
			action:     Action{Kind: lifecycle.ActionDelete, Confirmed: true},
			wantReason: lifecycle.InvalidState,
			wantState:  lifecycle.StateActive,
		},
		{
			name:       "extend requires positive days",
			doc:        doc("d1", lifecycle.CategoryBankStatements, daysAgo(200), lifecycle.StateActive),
			action:     Action{Kind: lifecycle.ActionExtend, Days: 0},
			wantReason: lifecycle.InvalidArgument,
			wantState:  lifecycle.StateActive,
		},
		{
			name:      "extend reverts pending state",
			doc:       doc("d1", lifecycle.CategoryBankStatements, daysAgo(200), lifecycle.StateArchivePending),
			action:    Action{Kind: lifecycle.ActionExtend, Days: 30},
			wantState: lifecycle.StateActive,
		},
		{
			name:      "extend keeps archive pending still due",
			doc:       doc("d1", lifecycle.CategoryBankStatements, daysAgo(200), lifecycle.StateArchivePending),
			action:    Action{Kind: lifecycle.ActionExtend, Days: 10},
			wantState: lifecycle.StateArchivePending,
		},
		{
			name:      "extend reverts delete pending",
			doc:       doc("d1", lifecycle.CategoryPayStub, daysAgo(400), lifecycle.StateDeletePending),
			action:    Action{Kind: lifecycle.ActionExtend, Days: 60},
			wantState: lifecycle.StateArchived,
		},
		{
			name:      "extend keeps delete pending still due",
			doc:       doc("d1", lifecycle.CategoryPayStub, daysAgo(400), lifecycle.StateDeletePending),
			action:    Action{Kind: lifecycle.ActionExtend, Days: 1},
			wantState: lifecycle.StateDeletePending,
		},
		{
			name:       "unknown action",
			doc:        doc("d1", lifecycle.CategoryBankStatements, daysAgo(200), lifecycle.StateActive),
			action:     Action{Kind: "shred"},
			wantReason: lifecycle.InvalidArgument,
			wantState:  lifecycle.StateActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.doc)
			tt.action.DocumentID = tt.doc.ID
			tt.action.ActorID = "ops"

			res, err := f.executor.Apply(context.Background(), tt.action)

			if tt.wantReason == "" {
				if err != nil {
					t.Fatalf("Apply() error = %v", err)
				}
				if !res.Success || res.ToState != tt.wantState {
					t.Errorf("Result = %+v, want success into %s", res, tt.wantState)
				}
			} else {
				if !lifecycle.IsPrecondition(err, tt.wantReason) {
					t.Fatalf("Apply() error = %v, want precondition %s", err, tt.wantReason)
				}
				if res.Success {
					t.Error("Result.Success should be false")
				}
			}

			if got := f.state(t, tt.doc.ID).State; got != tt.wantState {
				t.Errorf("stored state = %s, want %s", got, tt.wantState)
			}

			recs := f.records(t)
			if len(recs) != 1 {
				t.Fatalf("got %d audit records, want exactly 1", len(recs))
			}
			if recs[0].ID != res.AuditID {
				t.Errorf("audit id = %s, Result.AuditID = %s", recs[0].ID, res.AuditID)
			}
			if recs[0].ActorID != "ops" {
				t.Errorf("audit actor = %q, want ops", recs[0].ActorID)
			}
		})
	}
}

func TestApply_AuditRecordContents(t *testing.T) {
	d := doc("d1", lifecycle.CategoryBankStatements, daysAgo(5*lifecycle.DaysPerRetentionYear+1), lifecycle.StateArchived)
	f := newFixture(t, d)

	if _, err := f.executor.Apply(context.Background(), Action{Kind: lifecycle.ActionDelete, DocumentID: "d1"}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	rec := f.records(t)[0]
	if rec.Action != audit.ActionDelete {
		t.Errorf("audit action = %s, want DELETE", rec.Action)
	}
	if rec.TableName != AuditTable || rec.RecordID != "d1" {
		t.Errorf("audit target = %s/%s", rec.TableName, rec.RecordID)
	}
	if rec.ActorID != "system" {
		t.Errorf("audit actor = %q, want default system", rec.ActorID)
	}
	if rec.OldValues["state"] != "archived" || rec.NewValues["state"] != "deleted" {
		t.Errorf("old/new state = %v/%v", rec.OldValues["state"], rec.NewValues["state"])
	}
	if rec.NewValues["outcome"] != "success" {
		t.Errorf("outcome = %v, want success", rec.NewValues["outcome"])
	}
	if !rec.Timestamp.Equal(testNow) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp, testNow)
	}
}

func TestApply_FailureAuditIsUpdate(t *testing.T) {
	d := doc("d1", lifecycle.CategoryBankStatements, daysAgo(200), lifecycle.StateArchived)
	f := newFixture(t, d)

	_, err := f.executor.Apply(context.Background(), Action{Kind: lifecycle.ActionArchive, DocumentID: "d1"})
	if !lifecycle.IsPrecondition(err, lifecycle.InvalidState) {
		t.Fatalf("Apply() error = %v, want InvalidState", err)
	}

	rec := f.records(t)[0]
	if rec.Action != audit.ActionUpdate {
		t.Errorf("audit action = %s, want UPDATE", rec.Action)
	}
	if rec.NewValues["outcome"] != "failure" || rec.NewValues["reason"] != "InvalidState" {
		t.Errorf("new values = %v", rec.NewValues)
	}
}

func TestApply_ExtendPushesDueDates(t *testing.T) {
	d := doc("d1", lifecycle.CategoryBankStatements, daysAgo(200), lifecycle.StateActive)
	f := newFixture(t, d)

	res, err := f.executor.Apply(context.Background(), Action{Kind: lifecycle.ActionExtend, DocumentID: "d1", Days: 30})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if res.ToState != lifecycle.StateActive {
		t.Errorf("ToState = %s, want active", res.ToState)
	}

	stored := f.state(t, "d1")
	if stored.RetentionExtensionDays != 30 {
		t.Fatalf("RetentionExtensionDays = %d, want 30", stored.RetentionExtensionDays)
	}

	p := testPolicies(t).Snapshot().Policy(lifecycle.CategoryBankStatements)
	decision, err := lifecycle.Evaluate(stored, p, testNow)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if decision.Due {
		t.Error("extended document should no longer be due for archival at day 200")
	}
	if want := daysAgo(200).Add(210 * lifecycle.Day); !decision.DueDate.Equal(want) {
		t.Errorf("DueDate = %v, want %v", decision.DueDate, want)
	}
}

func TestApply_HoldToggle(t *testing.T) {
	f := newFixture(t, doc("d1", lifecycle.CategoryBankStatements, daysAgo(200), lifecycle.StateActive))
	ctx := context.Background()

	if _, err := f.executor.Apply(ctx, Action{Kind: lifecycle.ActionPlaceHold, DocumentID: "d1"}); err != nil {
		t.Fatalf("place hold: %v", err)
	}
	if !f.state(t, "d1").LegalHold {
		t.Fatal("hold was not placed")
	}

	if _, err := f.executor.Apply(ctx, Action{Kind: lifecycle.ActionArchive, DocumentID: "d1"}); !lifecycle.IsPrecondition(err, lifecycle.HoldActive) {
		t.Fatalf("archive under hold: error = %v, want HoldActive", err)
	}

	if _, err := f.executor.Apply(ctx, Action{Kind: lifecycle.ActionReleaseHold, DocumentID: "d1"}); err != nil {
		t.Fatalf("release hold: %v", err)
	}
	if _, err := f.executor.Apply(ctx, Action{Kind: lifecycle.ActionArchive, DocumentID: "d1"}); err != nil {
		t.Fatalf("archive after release: %v", err)
	}

	if got := len(f.records(t)); got != 4 {
		t.Errorf("got %d audit records, want 4", got)
	}
}

func TestApply_NotFound(t *testing.T) {
	f := newFixture(t)

	res, err := f.executor.Apply(context.Background(), Action{Kind: lifecycle.ActionArchive, DocumentID: "missing"})
	if !errors.Is(err, document.ErrNotFound) {
		t.Fatalf("Apply() error = %v, want ErrNotFound", err)
	}
	if res.AuditID == "" || len(f.records(t)) != 1 {
		t.Error("a failed lookup must still be audited")
	}
}

// flakyDocs fails the first n state writes.
type flakyDocs struct {
	document.Store
	failures atomic.Int32
	calls    atomic.Int32
}

func (s *flakyDocs) UpdateDocumentState(ctx context.Context, id string, expected document.Revision, state lifecycle.State) error {
	s.calls.Add(1)
	if s.failures.Add(-1) >= 0 {
		return errors.New("database is locked")
	}
	return s.Store.UpdateDocumentState(ctx, id, expected, state)
}

func TestApply_RetriesTransientWrites(t *testing.T) {
	f := newFixture(t, doc("d1", lifecycle.CategoryBankStatements, daysAgo(200), lifecycle.StateActive))
	flaky := &flakyDocs{Store: f.docs}
	flaky.failures.Store(2)
	e := f.build(t, flaky, f.audit)

	if _, err := e.Apply(context.Background(), Action{Kind: lifecycle.ActionArchive, DocumentID: "d1"}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := flaky.calls.Load(); got != 3 {
		t.Errorf("UpdateDocumentState called %d times, want 3", got)
	}
	if f.state(t, "d1").State != lifecycle.StateArchived {
		t.Error("document should be archived after retries")
	}
}

func TestApply_RetriesExhausted(t *testing.T) {
	f := newFixture(t, doc("d1", lifecycle.CategoryBankStatements, daysAgo(200), lifecycle.StateActive))
	flaky := &flakyDocs{Store: f.docs}
	flaky.failures.Store(100)
	e := f.build(t, flaky, f.audit)

	_, err := e.Apply(context.Background(), Action{Kind: lifecycle.ActionArchive, DocumentID: "d1"})
	var pe *lifecycle.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("Apply() error = %v, want PersistenceError", err)
	}
	if pe.Attempts != 3 || pe.Op != "update_state" {
		t.Errorf("PersistenceError = %+v, want 3 attempts of update_state", pe)
	}
	if f.state(t, "d1").State != lifecycle.StateActive {
		t.Error("last-known-good state must be preserved")
	}
}

// racingDocs lets another writer change the document between the
// executor's read and its first state write.
type racingDocs struct {
	document.Store
	once  sync.Once
	other func()
}

func (s *racingDocs) UpdateDocumentState(ctx context.Context, id string, expected document.Revision, state lifecycle.State) error {
	s.once.Do(s.other)
	return s.Store.UpdateDocumentState(ctx, id, expected, state)
}

func TestApply_ConcurrentWriterConflict(t *testing.T) {
	f := newFixture(t, doc("d1", lifecycle.CategoryPayStub, daysAgo(400), lifecycle.StateArchived))
	racing := &racingDocs{Store: f.docs, other: func() {
		rev := document.Revision{State: lifecycle.StateArchived}
		if err := f.docs.SetLegalHold(context.Background(), "d1", rev, true); err != nil {
			t.Errorf("SetLegalHold() error = %v", err)
		}
	}}
	e := f.build(t, racing, f.audit)

	res, err := e.Apply(context.Background(), Action{Kind: lifecycle.ActionDelete, DocumentID: "d1", Confirmed: true})
	if !lifecycle.IsPrecondition(err, lifecycle.ConcurrentUpdate) {
		t.Fatalf("Apply() error = %v, want ConcurrentUpdate", err)
	}
	if res.Success {
		t.Error("Result.Success should be false")
	}

	got := f.state(t, "d1")
	if got.State != lifecycle.StateArchived || !got.LegalHold {
		t.Errorf("document = %+v, want archived and held", got)
	}
	recs := f.records(t)
	if len(recs) != 1 || recs[0].NewValues["reason"] != string(lifecycle.ConcurrentUpdate) {
		t.Errorf("audit records = %+v, want one ConcurrentUpdate failure", recs)
	}
}

// failingAudit rejects every append.
type failingAudit struct {
	audit.Store
}

func (failingAudit) Append(context.Context, *audit.Record) error {
	return errors.New("disk full")
}

func TestApply_AuditFailureRollsBack(t *testing.T) {
	f := newFixture(t, doc("d1", lifecycle.CategoryBankStatements, daysAgo(200), lifecycle.StateActive))
	e := f.build(t, f.docs, failingAudit{Store: f.audit})

	res, err := e.Apply(context.Background(), Action{Kind: lifecycle.ActionArchive, DocumentID: "d1"})
	if err == nil || res.Success {
		t.Fatal("Apply() must fail when the audit record cannot be written")
	}
	var pe *lifecycle.PersistenceError
	if !errors.As(err, &pe) || pe.Op != "audit_append" {
		t.Errorf("error = %v, want audit_append PersistenceError", err)
	}
	if got := f.state(t, "d1").State; got != lifecycle.StateActive {
		t.Errorf("state after failed audit = %s, want rollback to active", got)
	}
}

func TestApply_LogsActor(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	f := newFixture(t, doc("d1", lifecycle.CategoryBankStatements, daysAgo(200), lifecycle.StateActive))
	e := f.build(t, f.docs, f.audit)

	if _, err := e.Apply(context.Background(), Action{Kind: lifecycle.ActionArchive, DocumentID: "d1", ActorID: "ops"}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"actor":"ops"`) {
		t.Errorf("log output missing actor:\n%s", buf.String())
	}
}

func TestApply_EmitsEvents(t *testing.T) {
	f := newFixture(t, doc("d1", lifecycle.CategoryBankStatements, daysAgo(200), lifecycle.StateActive))

	_, _ = f.executor.Apply(context.Background(), Action{Kind: lifecycle.ActionArchive, DocumentID: "d1"})
	_, _ = f.executor.Apply(context.Background(), Action{Kind: lifecycle.ActionArchive, DocumentID: "d1"})

	events := f.dispatcher.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != notify.EventActionApplied || events[0].Outcome != "success" || events[0].ToState != "archived" {
		t.Errorf("first event = %+v", events[0])
	}
	if events[1].Outcome != "failure" {
		t.Errorf("second event outcome = %q, want failure", events[1].Outcome)
	}
}

func TestApply_CancelledContext(t *testing.T) {
	f := newFixture(t, doc("d1", lifecycle.CategoryBankStatements, daysAgo(200), lifecycle.StateActive))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.executor.Apply(ctx, Action{Kind: lifecycle.ActionArchive, DocumentID: "d1"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Apply() error = %v, want context.Canceled", err)
	}
	if f.state(t, "d1").State != lifecycle.StateActive || len(f.records(t)) != 0 {
		t.Error("a cancelled Apply must not touch the document or the audit log")
	}
}

func TestApply_ConcurrentSameDocument(t *testing.T) {
	f := newFixture(t, doc("d1", lifecycle.CategoryBankStatements, daysAgo(200), lifecycle.StateActive))

	const n = 8
	var wg sync.WaitGroup
	var applied atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.executor.Apply(context.Background(), Action{Kind: lifecycle.ActionArchive, DocumentID: "d1"}); err == nil {
				applied.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := applied.Load(); got != 1 {
		t.Errorf("%d concurrent archives succeeded, want exactly 1", got)
	}
	if got := len(f.records(t)); got != n {
		t.Errorf("got %d audit records, want %d", got, n)
	}
	if got := f.executor.locks.size(); got != 0 {
		t.Errorf("%d lock entries left behind", got)
	}
}

func TestApplyBatch(t *testing.T) {
	f := newFixture(t,
		doc("a", lifecycle.CategoryBankStatements, daysAgo(200), lifecycle.StateActive),
		doc("b", lifecycle.CategoryBankStatements, daysAgo(200), lifecycle.StateArchived),
	)

	out := f.executor.ApplyBatch(context.Background(), []Action{
		{Kind: lifecycle.ActionArchive, DocumentID: "a"},
		{Kind: lifecycle.ActionDelete, DocumentID: "b"},
	})

	if out.Applied != 1 || out.Failed != 1 || out.Skipped != 0 {
		t.Errorf("BatchResult = %+v, want 1 applied, 1 failed", out)
	}
	if !out.Partial() {
		t.Error("batch with a failure should be partial")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out = f.executor.ApplyBatch(ctx, []Action{{Kind: lifecycle.ActionExtend, DocumentID: "a", Days: 1}})
	if out.Skipped != 1 || len(out.Results) != 0 {
		t.Errorf("cancelled batch = %+v, want 1 skipped", out)
	}
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("a")
	unlockB := k.Lock("b")

	done := make(chan struct{})
	go func() {
		unlock := k.Lock("a")
		unlock()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second Lock(a) acquired while a was held")
	case <-time.After(20 * time.Millisecond):
	}

	unlockA()
	<-done
	unlockB()

	if k.size() != 0 {
		t.Errorf("size = %d, want 0", k.size())
	}
}
