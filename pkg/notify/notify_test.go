package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func TestNewTask(t *testing.T) {
	ev := Event{
		Type:       EventActionDue,
		DocumentID: "doc-1",
		Action:     "archive",
		FromState:  "active",
		ToState:    "archive_pending",
		OccurredAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	task, err := NewTask(ev)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	if task.Type() != "action.due" {
		t.Errorf("Type() = %q, want action.due", task.Type())
	}
	var decoded Event
	if err := json.Unmarshal(task.Payload(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.DocumentID != "doc-1" || decoded.ToState != "archive_pending" {
		t.Errorf("payload = %+v", decoded)
	}
}

func TestNewAsynqDispatcher_RequiresAddr(t *testing.T) {
	if _, err := NewAsynqDispatcher(AsynqConfig{}); err == nil {
		t.Error("NewAsynqDispatcher() without address expected error")
	}
}

func TestBreakerDispatcher_OpensAfterFailures(t *testing.T) {
	inner := &MemoryDispatcher{Err: errors.New("redis down")}
	d := NewBreakerDispatcher(inner, BreakerConfig{MaxFailures: 2, Timeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := d.Dispatch(ctx, Event{Type: EventActionApplied}); err == nil {
			t.Fatalf("Dispatch() %d expected error", i)
		}
	}
	if d.State() != gobreaker.StateOpen {
		t.Fatalf("State() = %s, want open", d.State())
	}

	inner.Err = nil
	err := d.Dispatch(ctx, Event{Type: EventActionApplied})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Dispatch() with open circuit error = %v, want ErrOpenState", err)
	}
	if len(inner.Events()) != 0 {
		t.Error("open circuit still reached the inner dispatcher")
	}
}

func TestBreakerDispatcher_PassesThrough(t *testing.T) {
	inner := &MemoryDispatcher{}
	d := NewBreakerDispatcher(inner, BreakerConfig{})
	if err := d.Dispatch(context.Background(), Event{Type: EventActionDue, DocumentID: "x"}); err != nil {
		t.Fatal(err)
	}
	if got := inner.Events(); len(got) != 1 || got[0].DocumentID != "x" {
		t.Errorf("Events() = %+v", got)
	}
}
