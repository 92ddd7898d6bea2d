// Package notify emits lifecycle events to a notification collaborator.
//
// The engine only enqueues events; delivery over email, SMS or in-app
// channels belongs to whichever worker consumes the queue. Two event types
// are produced:
//
//   - action.due: a scan found a document whose next action is due
//   - action.applied: the executor applied, or rejected, an action
//
// AsynqDispatcher enqueues events as asynq tasks on Redis. BreakerDispatcher
// wraps any Dispatcher with a circuit breaker so an unavailable queue does
// not slow down scans.
package notify
