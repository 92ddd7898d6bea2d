package export

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"mercator-hq/custodian/pkg/audit"
)

func TestJSONExporter(t *testing.T) {
	tests := []struct {
		name      string
		records   []*audit.Record
		wantCount int
	}{
		{"empty", nil, 0},
		{"single record is still an array", sampleRecords()[:1], 1},
		{"many", sampleRecords(), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Export(context.Background(), tt.records, FormatJSON)
			if err != nil {
				t.Fatalf("Export() error = %v", err)
			}
			if tt.wantCount == 0 && string(data) != "[]" {
				t.Errorf("empty export = %q, want []", data)
			}
			var decoded []map[string]any
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("output is not a JSON array: %v", err)
			}
			if len(decoded) != tt.wantCount {
				t.Errorf("decoded %d records, want %d", len(decoded), tt.wantCount)
			}
			if tt.wantCount > 0 && !strings.Contains(string(data), "\n  {") {
				t.Error("output is not indented")
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"csv": FormatCSV, "JSON": FormatJSON, " json ": FormatJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) expected error")
	}
	if _, err := New("xml"); err == nil {
		t.Error("New(xml) expected error")
	}
}

func TestObjectKey(t *testing.T) {
	at := time.Date(2026, 2, 3, 4, 5, 6, 7, time.UTC)
	got := ObjectKey("exports", FormatCSV, at)
	want := "exports/2026/02/03/audit-20260203T040506.000000007Z.csv"
	if got != want {
		t.Errorf("ObjectKey() = %q, want %q", got, want)
	}
}
