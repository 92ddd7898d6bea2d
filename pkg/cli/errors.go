package cli

import (
	"errors"
	"fmt"

	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/lifecycle"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitPartial = 1
	ExitFatal   = 2
)

// ConfigError represents an error in configuration or flags.
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// PartialFailureError reports a command that finished but could not
// process every item.
type PartialFailureError struct {
	Command string
	Failed  int
	Total   int
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s: %d of %d items failed", e.Command, e.Failed, e.Total)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string, cause error) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var cliCfg *ConfigError
	var policyCfg *lifecycle.ConfigError
	var validation config.ValidationError
	var fieldErr config.FieldError
	switch {
	case errors.As(err, &cliCfg),
		errors.As(err, &policyCfg),
		errors.As(err, &validation),
		errors.As(err, &fieldErr):
		return ExitFatal
	}
	return ExitPartial
}
