package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"mercator-hq/custodian/pkg/audit"
)

func sampleRecords() []*audit.Record {
	ts := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	return []*audit.Record{
		{
			ID: "a1", Timestamp: ts, ActorID: "ops", Action: audit.ActionUpdate,
			TableName: "documents", RecordID: "doc-1",
			OldValues: map[string]any{"state": "active", "legal_hold": false},
			NewValues: map[string]any{"state": "archived", "legal_hold": false},
			RiskScore: 20,
		},
		{
			ID: "a2", Timestamp: ts.Add(1500 * time.Millisecond), ActorID: `o"brien`, Action: audit.ActionDelete,
			TableName: "documents", RecordID: "doc,2",
			OldValues: map[string]any{"note": "said \"keep\"\nthen left"},
			NewValues: map[string]any{"state": "deleted"},
			RiskScore: 90,
		},
		{ID: "a3", Timestamp: ts.Add(time.Hour), ActorID: "auditor", Action: audit.ActionExport, TableName: "audit_log", RecordID: "e-1"},
	}
}

func TestCSVExporter_RoundTrip(t *testing.T) {
	records := sampleRecords()
	data, err := Export(context.Background(), records, FormatCSV)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("csv parse error = %v", err)
	}
	if len(rows) != len(records)+1 {
		t.Fatalf("got %d rows, want %d", len(rows), len(records)+1)
	}
	if !reflect.DeepEqual(rows[0], Header) {
		t.Errorf("header = %v, want %v", rows[0], Header)
	}

	for i, r := range records {
		row := rows[i+1]
		if row[0] != r.ID || row[2] != r.ActorID || row[3] != string(r.Action) ||
			row[4] != r.TableName || row[5] != r.RecordID || row[8] != strconv.Itoa(r.RiskScore) {
			t.Errorf("row %d = %v, record %+v", i, row, r)
		}
		ts, err := time.Parse(time.RFC3339Nano, row[1])
		if err != nil || !ts.Equal(r.Timestamp) {
			t.Errorf("row %d timestamp = %q (%v), want %v", i, row[1], err, r.Timestamp)
		}
		assertValues(t, row[6], r.OldValues)
		assertValues(t, row[7], r.NewValues)
	}
}

func assertValues(t *testing.T, field string, want map[string]any) {
	t.Helper()
	if want == nil {
		if field != "" {
			t.Errorf("nil values exported as %q", field)
		}
		return
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(field), &got); err != nil {
		t.Fatalf("values field %q is not JSON: %v", field, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("values = %v, want %v", got, want)
	}
}

func TestCSVExporter_QuotesEveryField(t *testing.T) {
	data, err := Export(context.Background(), sampleRecords()[:1], FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	want := `"a1","2026-01-10T08:00:00Z","ops","UPDATE","documents","doc-1","{""legal_hold"":false,""state"":""active""}","{""legal_hold"":false,""state"":""archived""}","20"`
	if lines[1] != want {
		t.Errorf("row =\n%s\nwant\n%s", lines[1], want)
	}
	if !strings.HasPrefix(lines[0], `"id","timestamp"`) {
		t.Errorf("header = %s", lines[0])
	}
}

func TestExport_Deterministic(t *testing.T) {
	for _, format := range []Format{FormatCSV, FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			first, err := Export(context.Background(), sampleRecords(), format)
			if err != nil {
				t.Fatal(err)
			}
			for i := 0; i < 20; i++ {
				again, err := Export(context.Background(), sampleRecords(), format)
				if err != nil {
					t.Fatal(err)
				}
				if !bytes.Equal(first, again) {
					t.Fatalf("run %d produced different bytes", i)
				}
			}
		})
	}
}

func TestExport_DoesNotMutateInput(t *testing.T) {
	records := sampleRecords()
	before := sampleRecords()
	for _, format := range []Format{FormatCSV, FormatJSON} {
		if _, err := Export(context.Background(), records, format); err != nil {
			t.Fatal(err)
		}
	}
	if !reflect.DeepEqual(records, before) {
		t.Error("Export() modified its input")
	}
}

func TestCSVExporter_Empty(t *testing.T) {
	data, err := Export(context.Background(), nil, FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "\n"); got != 1 {
		t.Errorf("empty export has %d lines, want header only", got)
	}
}
