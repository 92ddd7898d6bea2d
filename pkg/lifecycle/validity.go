package lifecycle

import (
	"fmt"
	"time"
)

// ExpiringSoonDays is the window, inclusive, in which a valid document is
// reported as expiring soon.
const ExpiringSoonDays = 30

// ValidityStatus classifies a document's freshness for underwriting use.
type ValidityStatus string

const (
	ValidityValid        ValidityStatus = "Valid"
	ValidityExpiringSoon ValidityStatus = "ExpiringSoon"
	ValidityExpired      ValidityStatus = "Expired"
)

// ValidityRuleTable maps a category to its validity window in days.
// Categories without an entry never expire.
type ValidityRuleTable map[Category]int

// DefaultValidityRules returns the built-in validity windows.
func DefaultValidityRules() ValidityRuleTable {
	return ValidityRuleTable{
		CategoryPayStub:        30,
		CategoryBankStatements: 60,
		CategoryCreditReport:   120,
		CategoryAppraisal:      120,
		CategoryTitleReport:    90,
		CategoryInsurance:      365,
		CategoryW2:             365,
		CategoryTaxReturn:      365,
	}
}

// Window returns the validity window for c.
func (t ValidityRuleTable) Window(c Category) (int, bool) {
	days, ok := t[c]
	return days, ok
}

// Clone returns an independent copy of the table.
func (t ValidityRuleTable) Clone() ValidityRuleTable {
	out := make(ValidityRuleTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Merge returns a copy of t with overrides applied on top.
func (t ValidityRuleTable) Merge(overrides map[Category]int) ValidityRuleTable {
	out := t.Clone()
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Validate rejects unknown categories and non-positive windows.
func (t ValidityRuleTable) Validate() error {
	for c, days := range t {
		if !c.Valid() {
			return NewConfigError("", "validity."+string(c), fmt.Sprintf("unknown document category %q", c))
		}
		if days <= 0 {
			return NewConfigError("", "validity."+string(c), fmt.Sprintf("window must be > 0 days, got %d", days))
		}
	}
	return nil
}

// ValidityAssessment is the derived freshness of one document.
type ValidityAssessment struct {
	DocumentID        string   `json:"document_id"`
	Category          Category `json:"category"`
	DaysSinceReceived int      `json:"days_since_received"`

	// ExpirationDate is nil when the category has no validity rule.
	ExpirationDate      *time.Time     `json:"expiration_date,omitempty"`
	DaysUntilExpiration int            `json:"days_until_expiration"`
	Status              ValidityStatus `json:"status"`
	HasRule             bool           `json:"has_rule"`
}

// Alert reports whether the assessment should be surfaced to an operator.
func (a ValidityAssessment) Alert() bool {
	return a.Status != ValidityValid
}

// ValidityTracker assesses documents against a rule table.
type ValidityTracker struct {
	rules ValidityRuleTable
}

// NewValidityTracker creates a tracker. A nil table uses the defaults.
func NewValidityTracker(rules ValidityRuleTable) *ValidityTracker {
	if rules == nil {
		rules = DefaultValidityRules()
	}
	return &ValidityTracker{rules: rules.Clone()}
}

// Rules returns a copy of the tracker's rule table.
func (t *ValidityTracker) Rules() ValidityRuleTable {
	return t.rules.Clone()
}

// Assess computes the validity of doc at now. It has no side effects.
func (t *ValidityTracker) Assess(doc *Document, now time.Time) ValidityAssessment {
	a := ValidityAssessment{
		DocumentID:        doc.ID,
		Category:          doc.Category,
		DaysSinceReceived: doc.AgeDays(now),
		Status:            ValidityValid,
	}

	window, ok := t.rules.Window(doc.Category)
	if !ok {
		return a
	}

	exp := doc.ReceivedDate.Add(time.Duration(window) * Day)
	a.HasRule = true
	a.ExpirationDate = &exp
	a.DaysUntilExpiration = window - a.DaysSinceReceived
	a.Status = statusFor(a.DaysUntilExpiration)
	return a
}

// MarkRenewed returns a copy of doc received at now. The original is not
// modified.
func (t *ValidityTracker) MarkRenewed(doc *Document, now time.Time) *Document {
	renewed := doc.Clone()
	renewed.ReceivedDate = now
	renewed.UpdatedAt = now
	return renewed
}

func statusFor(daysUntil int) ValidityStatus {
	switch {
	case daysUntil < 0:
		return ValidityExpired
	case daysUntil <= ExpiringSoonDays:
		return ValidityExpiringSoon
	default:
		return ValidityValid
	}
}
