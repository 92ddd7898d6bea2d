package lifecycle

import (
	"errors"
	"fmt"
)

// ConfigError reports a malformed or contradictory policy or rule. It is
// fatal to a scan, which aborts before touching any document.
type ConfigError struct {
	PolicyID string
	Field    string
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config error [policy=%s, field=%s]: %s", e.PolicyID, e.Field, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new ConfigError.
func NewConfigError(policyID, field, message string) *ConfigError {
	return &ConfigError{
		PolicyID: policyID,
		Field:    field,
		Message:  message,
	}
}

// EvaluationError reports a single document whose data cannot be evaluated.
type EvaluationError struct {
	DocumentID string
	Field      string
	Cause      error
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation error [document=%s, field=%s]: %v", e.DocumentID, e.Field, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// NewEvaluationError creates a new EvaluationError.
func NewEvaluationError(documentID, field string, cause error) *EvaluationError {
	return &EvaluationError{
		DocumentID: documentID,
		Field:      field,
		Cause:      cause,
	}
}

// PreconditionReason is the typed cause of a rejected action.
type PreconditionReason string

const (
	HoldActive           PreconditionReason = "HoldActive"
	RetentionNotElapsed  PreconditionReason = "RetentionNotElapsed"
	PolicyInactive       PreconditionReason = "PolicyInactive"
	InvalidState         PreconditionReason = "InvalidState"
	ConfirmationRequired PreconditionReason = "ConfirmationRequired"
	InvalidArgument      PreconditionReason = "InvalidArgument"

	// ConcurrentUpdate means the document changed between read and write,
	// typically by another process sharing the store.
	ConcurrentUpdate PreconditionReason = "ConcurrentUpdate"
)

// PreconditionError reports an action rejected by a lifecycle rule.
type PreconditionError struct {
	DocumentID string
	Action     ActionKind
	Reason     PreconditionReason
	Message    string
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("precondition failed [document=%s, action=%s, reason=%s]: %s",
			e.DocumentID, e.Action, e.Reason, e.Message)
	}
	return fmt.Sprintf("precondition failed [document=%s, action=%s, reason=%s]", e.DocumentID, e.Action, e.Reason)
}

// NewPreconditionError creates a new PreconditionError.
func NewPreconditionError(documentID string, action ActionKind, reason PreconditionReason, message string) *PreconditionError {
	return &PreconditionError{
		DocumentID: documentID,
		Action:     action,
		Reason:     reason,
		Message:    message,
	}
}

// PersistenceError reports a store write that failed after retries.
type PersistenceError struct {
	Op         string
	DocumentID string
	Attempts   int
	Cause      error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error [op=%s, document=%s, attempts=%d]: %v", e.Op, e.DocumentID, e.Attempts, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// NewPersistenceError creates a new PersistenceError.
func NewPersistenceError(op, documentID string, attempts int, cause error) *PersistenceError {
	return &PersistenceError{
		Op:         op,
		DocumentID: documentID,
		Attempts:   attempts,
		Cause:      cause,
	}
}

// IsPrecondition reports whether err is a PreconditionError with the given
// reason. An empty reason matches any precondition failure.
func IsPrecondition(err error, reason PreconditionReason) bool {
	var pe *PreconditionError
	if !errors.As(err, &pe) {
		return false
	}
	return reason == "" || pe.Reason == reason
}
