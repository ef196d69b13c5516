package engine

import (
	"errors"
	"fmt"
)

// EngineError represents an error detected during engine operation.
//
// Engine errors include:
//   - Persist failure: The running execution record could not be written
//   - Unknown execution: Cancel targeted an execution the engine isn't tracking
//
// EngineError includes structured fields for diagnostics.
type EngineError struct {
	// Code identifies the error category.
	Code EngineErrorCode

	// Message is a human-readable description.
	Message string

	// PlaybookID identifies the affected playbook, when known.
	PlaybookID string

	// ExecutionID identifies the affected execution, when known.
	ExecutionID string

	// Err is the underlying cause, when any.
	Err error
}

// EngineErrorCode categorizes engine errors.
type EngineErrorCode string

const (
	// ErrCodePersistFailed indicates the execution record could not be stored.
	ErrCodePersistFailed EngineErrorCode = "PERSIST_FAILED"

	// ErrCodeUnknownExecution indicates a cancel for an untracked execution.
	ErrCodeUnknownExecution EngineErrorCode = "UNKNOWN_EXECUTION"

	// ErrCodeEngineClosed indicates the engine has been stopped.
	ErrCodeEngineClosed EngineErrorCode = "ENGINE_CLOSED"
)

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.PlaybookID != "" {
		msg += fmt.Sprintf(" (playbook=%s)", e.PlaybookID)
	}
	if e.ExecutionID != "" {
		msg += fmt.Sprintf(" (execution=%s)", e.ExecutionID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause for errors.Is chains.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// IsPersistError returns true if the error is a record persistence failure.
// Uses errors.As to handle wrapped errors.
func IsPersistError(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodePersistFailed
	}
	return false
}

// IsUnknownExecution returns true if the error targets an untracked execution.
func IsUnknownExecution(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeUnknownExecution
	}
	return false
}
