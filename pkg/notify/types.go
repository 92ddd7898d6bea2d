package notify

import (
	"context"
	"sync"
	"time"
)

// EventType identifies a kind of lifecycle event.
type EventType string

const (
	EventActionDue     EventType = "action.due"
	EventActionApplied EventType = "action.applied"
)

// Event describes one lifecycle occurrence.
type Event struct {
	Type       EventType `json:"type"`
	DocumentID string    `json:"document_id"`
	LoanID     string    `json:"loan_id,omitempty"`
	Action     string    `json:"action"`
	FromState  string    `json:"from_state,omitempty"`
	ToState    string    `json:"to_state,omitempty"`
	DueDate    time.Time `json:"due_date,omitempty"`

	// Outcome is "success" or "failure" for applied events.
	Outcome string `json:"outcome,omitempty"`
	Error   string `json:"error,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// Dispatcher hands events to the notification collaborator.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
	Close() error
}

// NopDispatcher drops every event.
type NopDispatcher struct{}

// Dispatch implements Dispatcher.
func (NopDispatcher) Dispatch(ctx context.Context, event Event) error { return nil }

// Close implements Dispatcher.
func (NopDispatcher) Close() error { return nil }

// MemoryDispatcher records events in memory. Err, when set, is returned
// from every Dispatch call.
type MemoryDispatcher struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

// Dispatch implements Dispatcher.
func (d *MemoryDispatcher) Dispatch(ctx context.Context, event Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.events = append(d.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (d *MemoryDispatcher) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Event(nil), d.events...)
}

// Close implements Dispatcher.
func (d *MemoryDispatcher) Close() error { return nil }
