package export

import (
	"context"
	"encoding/json"
	"io"

	"mercator-hq/custodian/pkg/audit"
)

// JSONExporter exports audit records as a pretty-printed JSON array.
type JSONExporter struct{}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// Export writes the records as an indented array. An empty input produces
// "[]".
func (e *JSONExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	if len(records) == 0 {
		_, err := w.Write([]byte("[]"))
		return err
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return audit.NewExportError("json", len(records), err)
	}

	if _, err := w.Write(data); err != nil {
		return audit.NewExportError("json", len(records), err)
	}
	return nil
}
