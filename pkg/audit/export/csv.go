package export

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"mercator-hq/custodian/pkg/audit"
)

// Header is the CSV column order.
var Header = []string{
	"id",
	"timestamp",
	"actor_id",
	"action",
	"table_name",
	"record_id",
	"old_values",
	"new_values",
	"risk_score",
}

// CSVExporter exports audit records to CSV.
type CSVExporter struct{}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Export writes a header row and one row per record. encoding/csv only
// quotes fields that need it, so rows are written by hand to quote every
// field.
func (e *CSVExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	bw := bufio.NewWriter(w)

	if err := writeRow(bw, Header); err != nil {
		return audit.NewExportError("csv", len(records), err)
	}

	for i, r := range records {
		if i%500 == 0 {
			if err := ctx.Err(); err != nil {
				return audit.NewExportError("csv", len(records), err)
			}
		}
		row, err := recordToRow(r)
		if err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
		if err := writeRow(bw, row); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
	}

	if err := bw.Flush(); err != nil {
		return audit.NewExportError("csv", len(records), err)
	}
	return nil
}

func recordToRow(r *audit.Record) ([]string, error) {
	oldValues, err := valuesJSON(r.OldValues)
	if err != nil {
		return nil, err
	}
	newValues, err := valuesJSON(r.NewValues)
	if err != nil {
		return nil, err
	}
	return []string{
		r.ID,
		r.Timestamp.UTC().Format(time.RFC3339Nano),
		r.ActorID,
		string(r.Action),
		r.TableName,
		r.RecordID,
		oldValues,
		newValues,
		strconv.Itoa(r.RiskScore),
	}, nil
}

// valuesJSON encodes a value map; encoding/json sorts map keys. A nil map
// becomes an empty field.
func valuesJSON(m map[string]any) (string, error) {
	if m == nil {
		return "", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func writeRow(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if err := w.WriteByte('"'); err != nil {
			return err
		}
		if _, err := w.WriteString(strings.ReplaceAll(f, `"`, `""`)); err != nil {
			return err
		}
		if err := w.WriteByte('"'); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}
