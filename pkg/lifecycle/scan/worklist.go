package scan

import (
	"sort"
	"time"

	"mercator-hq/custodian/pkg/lifecycle"
	"mercator-hq/custodian/pkg/lifecycle/action"
)

// Entry is one due lifecycle action.
type Entry struct {
	Document  *lifecycle.Document `json:"document"`
	FromState lifecycle.State     `json:"from_state"`

	// ToState is the state the evaluator classified the document into.
	ToState lifecycle.State `json:"to_state"`

	// Action is what the executor performs to carry the entry out.
	Action               lifecycle.ActionKind         `json:"action"`
	DueDate              time.Time                    `json:"due_date"`
	Reason               lifecycle.Reason             `json:"reason"`
	RequiresConfirmation bool                         `json:"requires_confirmation,omitempty"`
	Validity             lifecycle.ValidityAssessment `json:"validity"`
}

// Worklist is the ordered output of a scan.
type Worklist struct {
	ScanID        string    `json:"scan_id"`
	GeneratedAt   time.Time `json:"generated_at"`
	PolicyVersion int64     `json:"policy_version"`
	Entries       []Entry   `json:"entries"`
}

// Actions converts the entries into executor actions. Entries needing
// confirmation are included only when confirmed is true.
func (w *Worklist) Actions(actor string, confirmed bool) []action.Action {
	out := make([]action.Action, 0, len(w.Entries))
	for _, e := range w.Entries {
		if e.RequiresConfirmation && !confirmed {
			continue
		}
		out = append(out, action.Action{
			Kind:       e.Action,
			DocumentID: e.Document.ID,
			Confirmed:  e.RequiresConfirmation && confirmed,
			ActorID:    actor,
		})
	}
	return out
}

// sortEntries orders by due date, then document id.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		return a.Document.ID < b.Document.ID
	})
}

// DocumentRef names a document reported outside the worklist.
type DocumentRef struct {
	DocumentID string             `json:"document_id"`
	Category   lifecycle.Category `json:"category"`
	State      lifecycle.State    `json:"state"`
	Reason     lifecycle.Reason   `json:"reason,omitempty"`
}

// DocumentError is a document that could not be evaluated.
type DocumentError struct {
	DocumentID string `json:"document_id"`
	Field      string `json:"field"`
	Message    string `json:"message"`
}

// Report carries everything a scan observed besides the worklist.
type Report struct {
	ScanID     string    `json:"scan_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Listed is the number of documents read from the store; Evaluated is
	// how many of them were fully evaluated.
	Listed    int `json:"listed"`
	Evaluated int `json:"evaluated"`

	Unpoliced      []DocumentRef                  `json:"unpoliced"`
	Held           []DocumentRef                  `json:"held"`
	ValidityAlerts []lifecycle.ValidityAssessment `json:"validity_alerts"`
	Errors         []DocumentError                `json:"errors"`

	Cancelled bool `json:"cancelled,omitempty"`
}

// Partial reports whether some documents were not evaluated.
func (r *Report) Partial() bool {
	return len(r.Errors) > 0 || r.Cancelled
}

// Outcome labels the scan for metrics and logs.
func (r *Report) Outcome() string {
	switch {
	case r.Cancelled:
		return "cancelled"
	case len(r.Errors) > 0:
		return "partial"
	default:
		return "success"
	}
}

func sortRefs(refs []DocumentRef) {
	sort.Slice(refs, func(i, j int) bool { return refs[i].DocumentID < refs[j].DocumentID })
}
