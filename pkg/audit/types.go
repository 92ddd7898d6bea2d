package audit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Action is the kind of activity an audit record describes.
type Action string

const (
	ActionInsert  Action = "INSERT"
	ActionUpdate  Action = "UPDATE"
	ActionDelete  Action = "DELETE"
	ActionLogin   Action = "LOGIN"
	ActionLogout  Action = "LOGOUT"
	ActionView    Action = "VIEW"
	ActionExport  Action = "EXPORT"
	ActionApprove Action = "APPROVE"
	ActionReject  Action = "REJECT"
)

var validActions = map[Action]bool{
	ActionInsert:  true,
	ActionUpdate:  true,
	ActionDelete:  true,
	ActionLogin:   true,
	ActionLogout:  true,
	ActionView:    true,
	ActionExport:  true,
	ActionApprove: true,
	ActionReject:  true,
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return validActions[a]
}

// ParseAction converts a case-insensitive name into an Action.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("unknown audit action %q", s)
	}
	return a, nil
}

// Record is one immutable audit log entry.
type Record struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actor_id"`
	Action    Action    `json:"action"`
	TableName string    `json:"table_name"`
	RecordID  string    `json:"record_id"`

	// OldValues and NewValues capture the changed fields.
	OldValues map[string]any `json:"old_values"`
	NewValues map[string]any `json:"new_values"`

	RiskScore int `json:"risk_score"`
}

// Clone returns a deep copy of the record's top-level value maps.
func (r *Record) Clone() *Record {
	c := *r
	c.OldValues = cloneValues(r.OldValues)
	c.NewValues = cloneValues(r.NewValues)
	return &c
}

func cloneValues(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Filter selects audit records. All set fields must match.
type Filter struct {
	// Start and End bound the timestamp, both inclusive.
	Start *time.Time
	End   *time.Time

	Actions []Action
	Tables  []string
	ActorID string

	// Limit caps the number of records returned. 0 means no limit.
	Limit int
}

// Matches reports whether r satisfies every set field of f.
func (f *Filter) Matches(r *Record) bool {
	if f == nil {
		return true
	}
	if f.Start != nil && r.Timestamp.Before(*f.Start) {
		return false
	}
	if f.End != nil && r.Timestamp.After(*f.End) {
		return false
	}
	if len(f.Actions) > 0 && !containsAction(f.Actions, r.Action) {
		return false
	}
	if len(f.Tables) > 0 && !containsString(f.Tables, r.TableName) {
		return false
	}
	if f.ActorID != "" && r.ActorID != f.ActorID {
		return false
	}
	return true
}

func containsAction(set []Action, a Action) bool {
	for _, s := range set {
		if s == a {
			return true
		}
	}
	return false
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Less orders records by timestamp, then id.
func Less(a, b *Record) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID < b.ID
}

// Store is an append-only audit log.
type Store interface {
	// Append durably writes a record. It returns only after the record is
	// persisted.
	Append(ctx context.Context, record *Record) error

	// Query returns matching records ordered by timestamp then id.
	Query(ctx context.Context, filter *Filter) ([]*Record, error)

	// Count returns the number of matching records, ignoring Limit.
	Count(ctx context.Context, filter *Filter) (int64, error)

	Close() error
}
