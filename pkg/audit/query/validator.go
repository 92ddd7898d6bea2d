package query

import (
	"fmt"

	"mercator-hq/custodian/pkg/audit"
)

// MaxLimit is the largest limit a single query may request.
const MaxLimit = 100000

// Validate checks a filter and returns a *audit.QueryError when any field
// is invalid. A nil filter is valid and matches everything.
func Validate(f *audit.Filter) error {
	if f == nil {
		return nil
	}

	if f.Limit < 0 {
		return audit.NewQueryError(f, fmt.Errorf("limit must be >= 0, got %d", f.Limit))
	}
	if f.Limit > MaxLimit {
		return audit.NewQueryError(f, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, f.Limit))
	}

	if f.Start != nil && f.End != nil && f.Start.After(*f.End) {
		return audit.NewQueryError(f, fmt.Errorf("start must not be after end"))
	}

	for _, a := range f.Actions {
		if !a.Valid() {
			return audit.NewQueryError(f, fmt.Errorf("invalid action: %s", a))
		}
	}
	for _, t := range f.Tables {
		if t == "" {
			return audit.NewQueryError(f, fmt.Errorf("table name must not be empty"))
		}
	}

	return nil
}
