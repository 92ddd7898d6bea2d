package policy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/custodian/pkg/lifecycle"
)

func bankPolicy(id string) lifecycle.RetentionPolicy {
	return lifecycle.RetentionPolicy{
		ID:                id,
		Name:              "Bank statements",
		Category:          lifecycle.CategoryBankStatements,
		RetentionYears:    5,
		ArchiveAfterDays:  180,
		AutoDelete:        true,
		LegalHoldOverride: true,
		IsActive:          true,
	}
}

func TestStore_Create(t *testing.T) {
	tests := []struct {
		name    string
		seed    []lifecycle.RetentionPolicy
		policy  lifecycle.RetentionPolicy
		wantErr bool
	}{
		{
			name:   "valid policy",
			policy: bankPolicy("p1"),
		},
		{
			name: "archive after exceeds retention",
			policy: lifecycle.RetentionPolicy{
				ID: "p1", Category: lifecycle.CategoryPayStub,
				RetentionYears: 1, ArchiveAfterDays: 400, IsActive: true,
			},
			wantErr: true,
		},
		{
			name:    "duplicate id",
			seed:    []lifecycle.RetentionPolicy{bankPolicy("p1")},
			policy:  bankPolicy("p1"),
			wantErr: true,
		},
		{
			name:    "second active policy for category",
			seed:    []lifecycle.RetentionPolicy{bankPolicy("p1")},
			policy:  bankPolicy("p2"),
			wantErr: true,
		},
		{
			name: "inactive policy alongside active one",
			seed: []lifecycle.RetentionPolicy{bankPolicy("p1")},
			policy: func() lifecycle.RetentionPolicy {
				p := bankPolicy("p2")
				p.IsActive = false
				return p
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			for _, p := range tt.seed {
				if err := s.Create(p); err != nil {
					t.Fatalf("seed Create() error = %v", err)
				}
			}

			err := s.Create(tt.policy)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Create() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var cfgErr *lifecycle.ConfigError
				if !errors.As(err, &cfgErr) {
					t.Errorf("Create() error type = %T, want *ConfigError", err)
				}
			}
		})
	}
}

func TestStore_DeactivateAndForCategory(t *testing.T) {
	s := NewStore()
	if err := s.Create(bankPolicy("p1")); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.ForCategory(lifecycle.CategoryBankStatements); !ok {
		t.Fatal("ForCategory() found no active policy")
	}
	if err := s.Deactivate("p1"); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if _, ok := s.ForCategory(lifecycle.CategoryBankStatements); ok {
		t.Error("ForCategory() returned a deactivated policy")
	}
	if p, ok := s.Get("p1"); !ok || p.IsActive {
		t.Errorf("Get() = %+v, %v; want inactive policy kept", p, ok)
	}
	if err := s.Deactivate("missing"); err == nil {
		t.Error("Deactivate(missing) expected error")
	}

	// Once p1 is inactive another policy may take over the category.
	if err := s.Create(bankPolicy("p2")); err != nil {
		t.Errorf("Create() after deactivate error = %v", err)
	}
}

func TestStore_SnapshotIsolation(t *testing.T) {
	s := NewStore()
	if err := s.Create(bankPolicy("p1")); err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()

	updated := bankPolicy("p1")
	updated.ArchiveAfterDays = 30
	if err := s.Update(updated); err != nil {
		t.Fatal(err)
	}

	got := snap.Policy(lifecycle.CategoryBankStatements)
	if got == nil || got.ArchiveAfterDays != 180 {
		t.Fatalf("snapshot policy = %+v, want archive_after_days 180", got)
	}
	// Mutating the returned copy must not leak into the snapshot.
	got.ArchiveAfterDays = 1
	if snap.Policy(lifecycle.CategoryBankStatements).ArchiveAfterDays != 180 {
		t.Error("snapshot shares state with returned policy")
	}
	if s.Snapshot().Version <= snap.Version {
		t.Error("Version did not advance after update")
	}
	if snap.Policy(lifecycle.CategoryPayStub) != nil {
		t.Error("Policy() for unpoliced category should be nil")
	}
}

func TestSnapshot_Validate(t *testing.T) {
	bad := lifecycle.RetentionPolicy{ID: "bad", Category: lifecycle.CategoryW2, RetentionYears: 0, ArchiveAfterDays: 10, IsActive: true}
	tests := []struct {
		name     string
		policies []lifecycle.RetentionPolicy
		wantErr  bool
	}{
		{"valid", []lifecycle.RetentionPolicy{bankPolicy("p1")}, false},
		{"contradictory thresholds", []lifecycle.RetentionPolicy{bad}, true},
		{"two active for one category", []lifecycle.RetentionPolicy{bankPolicy("p1"), bankPolicy("p2")}, true},
		{"duplicate ids", []lifecycle.RetentionPolicy{bankPolicy("p1"), bankPolicy("p1")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSnapshot(tt.policies, nil).Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStore_ReplaceIsAtomic(t *testing.T) {
	s := NewStore()
	if err := s.Create(bankPolicy("p1")); err != nil {
		t.Fatal(err)
	}

	bad := lifecycle.RetentionPolicy{ID: "bad", Category: lifecycle.CategoryW2, ArchiveAfterDays: 10}
	if err := s.Replace([]lifecycle.RetentionPolicy{bankPolicy("p9"), bad}, nil); err == nil {
		t.Fatal("Replace() expected error")
	}
	if _, ok := s.Get("p1"); !ok {
		t.Error("failed Replace() dropped existing policy")
	}
	if _, ok := s.Get("p9"); ok {
		t.Error("failed Replace() partially applied")
	}
}

const policyYAML = `
policies:
  - id: bank-5y
    name: Bank statements
    category: bank_statements
    retention_years: 5
    archive_after_days: 180
    auto_delete: true
    legal_hold_override: true
    is_active: true
  - id: pay-2y
    name: Pay stubs
    category: pay_stub
    retention_years: 2
    archive_after_days: 90
    is_active: true
validity:
  pay_stub: 45
`

func TestLoadInto(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	if err := os.WriteFile(path, []byte(policyYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore()
	if err := LoadInto(s, path); err != nil {
		t.Fatalf("LoadInto() error = %v", err)
	}

	snap := s.Snapshot()
	if snap.ActiveCount() != 2 {
		t.Errorf("ActiveCount() = %d, want 2", snap.ActiveCount())
	}
	rules := snap.ValidityRules()
	if rules[lifecycle.CategoryPayStub] != 45 {
		t.Errorf("pay_stub window = %d, want 45", rules[lifecycle.CategoryPayStub])
	}
	if rules[lifecycle.CategoryBankStatements] != 60 {
		t.Errorf("bank_statements window = %d, want default 60", rules[lifecycle.CategoryBankStatements])
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown field", "policies:\n  - id: p\n    retention_yrs: 5\n"},
		{"malformed yaml", "policies: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			var cfgErr *lifecycle.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("Parse() error = %v, want *ConfigError", err)
			}
		})
	}

	f, err := Parse(nil)
	if err != nil || len(f.Policies) != 0 {
		t.Errorf("Parse(empty) = %+v, %v", f, err)
	}
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	calls := make(chan int, 10)
	for i := 0; i < 5; i++ {
		n := i
		d.Trigger(func() { calls <- n })
	}

	select {
	case got := <-calls:
		if got != 4 {
			t.Errorf("callback ran with %d, want last trigger 4", got)
		}
	case <-time.After(time.Second):
		t.Fatal("debounced callback never ran")
	}

	select {
	case extra := <-calls:
		t.Errorf("unexpected extra callback %d", extra)
	case <-time.After(60 * time.Millisecond):
	}
}
