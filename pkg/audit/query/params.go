package query

import (
	"fmt"
	"strings"
	"time"

	"mercator-hq/custodian/pkg/audit"
)

// dateOnly is accepted wherever a timestamp is. A date-only end bound
// covers the whole day.
const dateOnly = "2006-01-02"

// Params is the textual form of a filter as given on the command line or
// in a query string.
type Params struct {
	Start   string
	End     string
	Actions []string
	Tables  []string
	Actor   string
	Limit   int
}

// ParseFilter converts p into a validated filter. Actions and tables may be
// repeated or comma separated.
func ParseFilter(p Params) (*audit.Filter, error) {
	f := &audit.Filter{ActorID: strings.TrimSpace(p.Actor), Limit: p.Limit}

	start, err := parseBound(p.Start, false)
	if err != nil {
		return nil, audit.NewQueryError(f, fmt.Errorf("invalid start: %w", err))
	}
	end, err := parseBound(p.End, true)
	if err != nil {
		return nil, audit.NewQueryError(f, fmt.Errorf("invalid end: %w", err))
	}
	f.Start, f.End = start, end

	for _, raw := range splitList(p.Actions) {
		a, err := audit.ParseAction(raw)
		if err != nil {
			return nil, audit.NewQueryError(f, err)
		}
		f.Actions = append(f.Actions, a)
	}
	f.Tables = splitList(p.Tables)

	if err := Validate(f); err != nil {
		return nil, err
	}
	return f, nil
}

func parseBound(s string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("%q is neither RFC 3339 nor YYYY-MM-DD", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
