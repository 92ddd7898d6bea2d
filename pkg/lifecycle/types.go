package lifecycle

import (
	"fmt"
	"sort"
	"time"
)

// Day is the unit every lifecycle threshold is measured in.
const Day = 24 * time.Hour

// DaysPerRetentionYear converts policy retention years into days.
const DaysPerRetentionYear = 365

// Category identifies a document type. The set is fixed; unknown categories
// are rejected rather than mapped to a fallback.
type Category string

const (
	CategoryPayStub           Category = "pay_stub"
	CategoryW2                Category = "w2"
	CategoryTaxReturn         Category = "tax_return"
	CategoryBankStatements    Category = "bank_statements"
	CategoryCreditReport      Category = "credit_report"
	CategoryAppraisal         Category = "appraisal"
	CategoryTitleReport       Category = "title_report"
	CategoryInsurance         Category = "insurance"
	CategoryIdentification    Category = "identification"
	CategoryPurchaseAgreement Category = "purchase_agreement"
	CategoryLoanApplication   Category = "loan_application"
	CategoryClosingDisclosure Category = "closing_disclosure"
	CategoryOther             Category = "other"
)

var knownCategories = map[Category]struct{}{
	CategoryPayStub:           {},
	CategoryW2:                {},
	CategoryTaxReturn:         {},
	CategoryBankStatements:    {},
	CategoryCreditReport:      {},
	CategoryAppraisal:         {},
	CategoryTitleReport:       {},
	CategoryInsurance:         {},
	CategoryIdentification:    {},
	CategoryPurchaseAgreement: {},
	CategoryLoanApplication:   {},
	CategoryClosingDisclosure: {},
	CategoryOther:             {},
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := knownCategories[c]
	return ok
}

// Categories returns all known categories in lexical order.
func Categories() []Category {
	out := make([]Category, 0, len(knownCategories))
	for c := range knownCategories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseCategory converts a string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown document category %q", s)
	}
	return c, nil
}

// State is a document lifecycle state.
type State string

const (
	StateActive         State = "active"
	StateArchivePending State = "archive_pending"
	StateArchived       State = "archived"
	StateDeletePending  State = "delete_pending"
	StateDeleted        State = "deleted"
)

// stateOrder ranks states along the lifecycle; lower is earlier.
var stateOrder = map[State]int{
	StateActive:         0,
	StateArchivePending: 1,
	StateArchived:       2,
	StateDeletePending:  3,
	StateDeleted:        4,
}

// Valid reports whether s is a known lifecycle state.
func (s State) Valid() bool {
	_, ok := stateOrder[s]
	return ok
}

// Before reports whether s comes earlier in the lifecycle than other.
func (s State) Before(other State) bool {
	return stateOrder[s] < stateOrder[other]
}

// ParseState converts a string into a State.
func ParseState(s string) (State, error) {
	st := State(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown lifecycle state %q", s)
	}
	return st, nil
}

// RetentionPolicy governs archival and deletion for one document category.
type RetentionPolicy struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Category Category `yaml:"category" json:"category"`

	// RetentionYears is the minimum time a document is kept before
	// deletion is permitted.
	RetentionYears int `yaml:"retention_years" json:"retention_years"`

	// ArchiveAfterDays is the age at which an active document becomes
	// eligible for archival.
	ArchiveAfterDays int `yaml:"archive_after_days" json:"archive_after_days"`

	// AutoDelete lets deletion proceed without operator confirmation once
	// retention has elapsed.
	AutoDelete bool `yaml:"auto_delete" json:"auto_delete"`

	// LegalHoldOverride freezes held documents in place.
	LegalHoldOverride bool `yaml:"legal_hold_override" json:"legal_hold_override"`

	IsActive bool `yaml:"is_active" json:"is_active"`
}

// RetentionDays returns the retention period in days.
func (p *RetentionPolicy) RetentionDays() int {
	return p.RetentionYears * DaysPerRetentionYear
}

// Validate checks the policy for malformed or contradictory settings.
func (p *RetentionPolicy) Validate() error {
	if p.ID == "" {
		return NewConfigError(p.ID, "id", "policy id is required")
	}
	if !p.Category.Valid() {
		return NewConfigError(p.ID, "category", fmt.Sprintf("unknown document category %q", p.Category))
	}
	if p.RetentionYears < 0 {
		return NewConfigError(p.ID, "retention_years", "must be >= 0")
	}
	if p.ArchiveAfterDays < 0 {
		return NewConfigError(p.ID, "archive_after_days", "must be >= 0")
	}
	if p.ArchiveAfterDays > p.RetentionDays() {
		return NewConfigError(p.ID, "archive_after_days",
			fmt.Sprintf("archive after %d days exceeds retention of %d days", p.ArchiveAfterDays, p.RetentionDays()))
	}
	return nil
}

// Document is a tracked document as seen by the engine. The document store
// is the system of record; the engine never caches these across scans.
type Document struct {
	ID           string    `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Category     Category  `json:"category" yaml:"category"`
	LoanID       string    `json:"loan_id" yaml:"loan_id"`
	ReceivedDate time.Time `json:"received_date" yaml:"received_date"`
	State        State     `json:"state" yaml:"state"`
	LegalHold    bool      `json:"legal_hold" yaml:"legal_hold"`

	// RetentionExtensionDays shifts both the archive and retention
	// thresholds forward.
	RetentionExtensionDays int `json:"retention_extension_days" yaml:"retention_extension_days"`

	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Clone returns a copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

// ArchiveDueDate returns the instant the document becomes eligible for archival.
func (d *Document) ArchiveDueDate(p *RetentionPolicy) time.Time {
	return d.ReceivedDate.Add(time.Duration(p.ArchiveAfterDays+d.RetentionExtensionDays) * Day)
}

// RetentionEndDate returns the instant the retention period elapses.
func (d *Document) RetentionEndDate(p *RetentionPolicy) time.Time {
	return d.ReceivedDate.Add(time.Duration(p.RetentionDays()+d.RetentionExtensionDays) * Day)
}

// AgeDays returns the number of whole days between the received date and now.
func (d *Document) AgeDays(now time.Time) int {
	return int(now.Sub(d.ReceivedDate) / Day)
}

// ActionKind names an operation the executor can apply.
type ActionKind string

const (
	ActionNone        ActionKind = ""
	ActionArchive     ActionKind = "archive"
	ActionDelete      ActionKind = "delete"
	ActionExtend      ActionKind = "extend_retention"
	ActionPlaceHold   ActionKind = "place_hold"
	ActionReleaseHold ActionKind = "release_hold"
)

// ParseActionKind converts a CLI style name into an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	switch s {
	case "archive":
		return ActionArchive, nil
	case "delete":
		return ActionDelete, nil
	case "extend", "extend_retention":
		return ActionExtend, nil
	case "hold", "place_hold":
		return ActionPlaceHold, nil
	case "release", "release_hold":
		return ActionReleaseHold, nil
	}
	return ActionNone, fmt.Errorf("unknown action %q", s)
}

// Reason explains a Decision.
type Reason string

const (
	ReasonHold             Reason = "hold"
	ReasonHoldBlocksDelete Reason = "hold-blocks-delete"
	ReasonArchiveDue       Reason = "archive-due"
	ReasonRetentionElapsed Reason = "retention-elapsed"
	ReasonManualDelete     Reason = "manual-delete"
	ReasonNotDue           Reason = "not-due"
	ReasonUnpoliced        Reason = "unpoliced"
	ReasonTerminal         Reason = "terminal"
)

// Decision is the outcome of evaluating one document against its policy.
type Decision struct {
	// Current is the document's stored state.
	Current State `json:"current"`

	// State is the state the document should be in.
	State State `json:"state"`

	// Action is the next executor action for the document, if any.
	Action ActionKind `json:"action,omitempty"`

	// Due is true when Action may be applied now.
	Due bool `json:"due"`

	// DueDate is when Action became, or will become, applicable.
	DueDate time.Time `json:"due_date,omitempty"`

	Reason Reason `json:"reason"`

	// RequiresConfirmation marks deletions an operator must confirm.
	RequiresConfirmation bool `json:"requires_confirmation,omitempty"`

	Unpoliced bool `json:"unpoliced,omitempty"`
	Held      bool `json:"held,omitempty"`
}

// Transition reports whether the decision moves the document to a new state.
func (d Decision) Transition() bool {
	return d.State != d.Current
}
