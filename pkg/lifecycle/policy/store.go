package policy

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"mercator-hq/custodian/pkg/lifecycle"
)

// Store holds retention policies keyed by id and the validity rule table.
// It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	policies map[string]*lifecycle.RetentionPolicy
	validity lifecycle.ValidityRuleTable
	version  int64
	logger   *slog.Logger
}

// NewStore creates an empty store with the default validity rules.
func NewStore() *Store {
	return &Store{
		policies: make(map[string]*lifecycle.RetentionPolicy),
		validity: lifecycle.DefaultValidityRules(),
		logger:   slog.Default().With("component", "lifecycle.policy"),
	}
}

// Create adds a new policy. The policy must be valid and must not collide
// with an existing id or with another active policy for its category.
func (s *Store) Create(p lifecycle.RetentionPolicy) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.policies[p.ID]; exists {
		return lifecycle.NewConfigError(p.ID, "id", "policy already exists")
	}
	if err := s.checkActiveConflict(&p); err != nil {
		return err
	}

	s.policies[p.ID] = &p
	s.version++
	s.logger.Info("policy created", "policy_id", p.ID, "category", p.Category, "active", p.IsActive)
	return nil
}

// Update replaces an existing policy.
func (s *Store) Update(p lifecycle.RetentionPolicy) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.policies[p.ID]; !exists {
		return lifecycle.NewConfigError(p.ID, "id", "policy not found")
	}
	if err := s.checkActiveConflict(&p); err != nil {
		return err
	}

	s.policies[p.ID] = &p
	s.version++
	s.logger.Info("policy updated", "policy_id", p.ID, "category", p.Category, "active", p.IsActive)
	return nil
}

// Deactivate marks a policy inactive. Inactive policies are kept but never
// evaluated.
func (s *Store) Deactivate(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.policies[id]
	if !exists {
		return lifecycle.NewConfigError(id, "id", "policy not found")
	}
	updated := *p
	updated.IsActive = false
	s.policies[id] = &updated
	s.version++
	s.logger.Info("policy deactivated", "policy_id", id, "category", p.Category)
	return nil
}

// Get returns a copy of the policy with the given id.
func (s *Store) Get(id string) (lifecycle.RetentionPolicy, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.policies[id]
	if !ok {
		return lifecycle.RetentionPolicy{}, false
	}
	return *p, true
}

// List returns copies of all policies ordered by id.
func (s *Store) List() []lifecycle.RetentionPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]lifecycle.RetentionPolicy, 0, len(s.policies))
	for _, p := range s.policies {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ForCategory returns the active policy for a category.
func (s *Store) ForCategory(c lifecycle.Category) (lifecycle.RetentionPolicy, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.policies {
		if p.IsActive && p.Category == c {
			return *p, true
		}
	}
	return lifecycle.RetentionPolicy{}, false
}

// SetValidityRules replaces the validity rule table.
func (s *Store) SetValidityRules(rules lifecycle.ValidityRuleTable) error {
	if err := rules.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.validity = rules.Clone()
	s.version++
	return nil
}

// Replace swaps the whole policy set and rule table in one step. Nothing
// changes if any policy is invalid.
func (s *Store) Replace(policies []lifecycle.RetentionPolicy, rules lifecycle.ValidityRuleTable) error {
	next := make(map[string]*lifecycle.RetentionPolicy, len(policies))
	for i := range policies {
		p := policies[i]
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := next[p.ID]; dup {
			return lifecycle.NewConfigError(p.ID, "id", "duplicate policy id")
		}
		next[p.ID] = &p
	}
	if err := validateActiveUnique(next); err != nil {
		return err
	}
	if rules == nil {
		rules = lifecycle.DefaultValidityRules()
	}
	if err := rules.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.policies = next
	s.validity = rules.Clone()
	s.version++
	s.logger.Info("policy set replaced", "policies", len(next), "version", s.version)
	return nil
}

// Snapshot returns an immutable view of the active policies and the rule
// table.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		Version:  s.version,
		TakenAt:  time.Now(),
		policies: make(map[lifecycle.Category]lifecycle.RetentionPolicy),
		all:      make([]lifecycle.RetentionPolicy, 0, len(s.policies)),
		validity: s.validity.Clone(),
	}
	for _, p := range s.policies {
		snap.all = append(snap.all, *p)
		if p.IsActive {
			// A second active policy for the category is reported by Validate.
			if _, taken := snap.policies[p.Category]; !taken {
				snap.policies[p.Category] = *p
			}
		}
	}
	sort.Slice(snap.all, func(i, j int) bool { return snap.all[i].ID < snap.all[j].ID })
	return snap
}

func (s *Store) checkActiveConflict(p *lifecycle.RetentionPolicy) error {
	if !p.IsActive {
		return nil
	}
	for id, existing := range s.policies {
		if id != p.ID && existing.IsActive && existing.Category == p.Category {
			return lifecycle.NewConfigError(p.ID, "category",
				fmt.Sprintf("policy %q is already active for category %s", id, p.Category))
		}
	}
	return nil
}

func validateActiveUnique(policies map[string]*lifecycle.RetentionPolicy) error {
	ids := make([]string, 0, len(policies))
	for id := range policies {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	seen := make(map[lifecycle.Category]string)
	for _, id := range ids {
		p := policies[id]
		if !p.IsActive {
			continue
		}
		if other, ok := seen[p.Category]; ok {
			return lifecycle.NewConfigError(id, "category",
				fmt.Sprintf("policy %q is already active for category %s", other, p.Category))
		}
		seen[p.Category] = id
	}
	return nil
}
