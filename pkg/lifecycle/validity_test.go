package lifecycle

import "testing"

func TestValidityTracker_Assess(t *testing.T) {
	tracker := NewValidityTracker(nil)

	tests := []struct {
		name          string
		category      Category
		age           int
		wantStatus    ValidityStatus
		wantDaysUntil int
		wantRule      bool
	}{
		{"pay stub 35 days expired", CategoryPayStub, 35, ValidityExpired, -5, true},
		{"pay stub 30 days boundary", CategoryPayStub, 30, ValidityExpiringSoon, 0, true},
		{"pay stub 31 days expired", CategoryPayStub, 31, ValidityExpired, -1, true},
		{"bank statement fresh", CategoryBankStatements, 10, ValidityValid, 50, true},
		{"bank statement 30 left", CategoryBankStatements, 30, ValidityExpiringSoon, 30, true},
		{"bank statement 31 left", CategoryBankStatements, 29, ValidityValid, 31, true},
		{"no rule never expires", CategoryLoanApplication, 5000, ValidityValid, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &Document{ID: "d", Category: tt.category, ReceivedDate: daysAgo(tt.age), State: StateActive}
			got := tracker.Assess(doc, testNow)

			if got.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", got.Status, tt.wantStatus)
			}
			if got.DaysUntilExpiration != tt.wantDaysUntil {
				t.Errorf("DaysUntilExpiration = %d, want %d", got.DaysUntilExpiration, tt.wantDaysUntil)
			}
			if got.HasRule != tt.wantRule {
				t.Errorf("HasRule = %v, want %v", got.HasRule, tt.wantRule)
			}
			if got.DaysSinceReceived != tt.age {
				t.Errorf("DaysSinceReceived = %d, want %d", got.DaysSinceReceived, tt.age)
			}
			if tt.wantRule != (got.ExpirationDate != nil) {
				t.Errorf("ExpirationDate = %v, want set = %v", got.ExpirationDate, tt.wantRule)
			}
		})
	}
}

func TestValidityTracker_StatusMatchesDaysUntil(t *testing.T) {
	tracker := NewValidityTracker(ValidityRuleTable{CategoryPayStub: 45})
	for age := 0; age <= 120; age++ {
		doc := &Document{ID: "d", Category: CategoryPayStub, ReceivedDate: daysAgo(age), State: StateActive}
		a := tracker.Assess(doc, testNow)

		if (a.Status == ValidityExpired) != (a.DaysUntilExpiration < 0) {
			t.Fatalf("age %d: status %s with days until %d", age, a.Status, a.DaysUntilExpiration)
		}
		soon := a.DaysUntilExpiration >= 0 && a.DaysUntilExpiration <= ExpiringSoonDays
		if (a.Status == ValidityExpiringSoon) != soon {
			t.Fatalf("age %d: status %s with days until %d", age, a.Status, a.DaysUntilExpiration)
		}
	}
}

func TestValidityTracker_MarkRenewed(t *testing.T) {
	tracker := NewValidityTracker(nil)
	doc := &Document{ID: "d", Category: CategoryBankStatements, ReceivedDate: daysAgo(90), State: StateArchivePending}

	if got := tracker.Assess(doc, testNow).Status; got != ValidityExpired {
		t.Fatalf("before renewal Status = %s, want Expired", got)
	}

	renewed := tracker.MarkRenewed(doc, testNow)
	if !renewed.ReceivedDate.Equal(testNow) {
		t.Errorf("ReceivedDate = %v, want %v", renewed.ReceivedDate, testNow)
	}
	if got := tracker.Assess(renewed, testNow).Status; got != ValidityValid {
		t.Errorf("after renewal Status = %s, want Valid", got)
	}
	if renewed.State != StateArchivePending {
		t.Errorf("lifecycle state changed to %s", renewed.State)
	}
	if doc.ReceivedDate.Equal(testNow) {
		t.Error("MarkRenewed modified the original document")
	}
}

func TestValidityRuleTable_Validate(t *testing.T) {
	if err := DefaultValidityRules().Validate(); err != nil {
		t.Errorf("default rules invalid: %v", err)
	}
	if err := (ValidityRuleTable{CategoryPayStub: 0}).Validate(); err == nil {
		t.Error("expected error for zero window")
	}
	if err := (ValidityRuleTable{"napkin": 10}).Validate(); err == nil {
		t.Error("expected error for unknown category")
	}

	merged := DefaultValidityRules().Merge(map[Category]int{CategoryPayStub: 45})
	if merged[CategoryPayStub] != 45 {
		t.Errorf("Merge() pay_stub = %d, want 45", merged[CategoryPayStub])
	}
	if DefaultValidityRules()[CategoryPayStub] != 30 {
		t.Error("Merge() modified the source table")
	}
}
