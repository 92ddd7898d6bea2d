package policy

import (
	"time"

	"mercator-hq/custodian/pkg/lifecycle"
)

// Snapshot is a point-in-time copy of the policy set. It is never modified
// after creation and may be shared between goroutines.
type Snapshot struct {
	Version int64
	TakenAt time.Time

	policies map[lifecycle.Category]lifecycle.RetentionPolicy
	all      []lifecycle.RetentionPolicy
	validity lifecycle.ValidityRuleTable
}

// NewSnapshot builds a snapshot directly from a policy list. It is used by
// callers that do not keep a Store, such as one-shot CLI validation.
func NewSnapshot(policies []lifecycle.RetentionPolicy, rules lifecycle.ValidityRuleTable) *Snapshot {
	if rules == nil {
		rules = lifecycle.DefaultValidityRules()
	}
	snap := &Snapshot{
		TakenAt:  time.Now(),
		policies: make(map[lifecycle.Category]lifecycle.RetentionPolicy),
		all:      append([]lifecycle.RetentionPolicy(nil), policies...),
		validity: rules.Clone(),
	}
	for _, p := range policies {
		if p.IsActive {
			if _, taken := snap.policies[p.Category]; !taken {
				snap.policies[p.Category] = p
			}
		}
	}
	return snap
}

// Policy returns the active policy for a category, or nil when the category
// is unpoliced. The returned value is a fresh copy.
func (s *Snapshot) Policy(c lifecycle.Category) *lifecycle.RetentionPolicy {
	p, ok := s.policies[c]
	if !ok {
		return nil
	}
	return &p
}

// Policies returns every policy in the snapshot, active or not.
func (s *Snapshot) Policies() []lifecycle.RetentionPolicy {
	return append([]lifecycle.RetentionPolicy(nil), s.all...)
}

// ActiveCount returns the number of categories with an active policy.
func (s *Snapshot) ActiveCount() int {
	return len(s.policies)
}

// ValidityRules returns a copy of the validity rule table.
func (s *Snapshot) ValidityRules() lifecycle.ValidityRuleTable {
	return s.validity.Clone()
}

// Validate re-checks every policy and the rule table. A scan calls it
// before touching any document.
func (s *Snapshot) Validate() error {
	byID := make(map[string]*lifecycle.RetentionPolicy, len(s.all))
	for i := range s.all {
		p := s.all[i]
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := byID[p.ID]; dup {
			return lifecycle.NewConfigError(p.ID, "id", "duplicate policy id")
		}
		byID[p.ID] = &p
	}
	if err := validateActiveUnique(byID); err != nil {
		return err
	}
	return s.validity.Validate()
}
