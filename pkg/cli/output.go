package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is an aligned table (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON.
	FormatJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", NewConfigError("output", fmt.Sprintf("unknown output format %q (want text or json)", s), nil)
}

// Table is the text rendering of a result.
type Table struct {
	Header []string
	Rows   [][]string

	// Footer lines are printed after the rows.
	Footer []string
}

// Printer writes command results in one format.
type Printer struct {
	w      io.Writer
	format OutputFormat
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer, format OutputFormat) *Printer {
	return &Printer{w: w, format: format}
}

// Format returns the printer's output format.
func (p *Printer) Format() OutputFormat {
	return p.format
}

// Print writes data as JSON, or table as text.
func (p *Printer) Print(data any, table Table) error {
	if p.format == FormatJSON {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	return p.PrintTable(table)
}

// PrintTable writes an aligned text table.
func (p *Printer) PrintTable(t Table) error {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	if len(t.Header) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Header, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, line := range t.Footer {
		if _, err := fmt.Fprintln(p.w, line); err != nil {
			return err
		}
	}
	return nil
}
