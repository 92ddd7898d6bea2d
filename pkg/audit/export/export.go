package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"mercator-hq/custodian/pkg/audit"
)

// Format is an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat converts a case-insensitive name into a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported export format %q (want csv or json)", s)
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

// Exporter writes audit records to w.
type Exporter interface {
	Export(ctx context.Context, records []*audit.Record, w io.Writer) error
}

// New returns the exporter for a format.
func New(format Format) (Exporter, error) {
	switch format {
	case FormatCSV:
		return NewCSVExporter(), nil
	case FormatJSON:
		return NewJSONExporter(), nil
	}
	return nil, audit.NewExportError(string(format), 0, fmt.Errorf("unsupported format"))
}

// Export renders records in the given format.
func Export(ctx context.Context, records []*audit.Record, format Format) ([]byte, error) {
	e, err := New(format)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := e.Export(ctx, records, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
