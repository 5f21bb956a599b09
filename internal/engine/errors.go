package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents a failure the runtime recovered from.
//
// Runtime errors include:
//   - Unknown action: a dispatch named no action in scope
//   - Branch mismatch: a server branch marker disagreed with the client
//   - Hydration mismatch: server markup did not match the view
//   - External call: a fetch or storage step failed without onError
//   - Lifecycle hook: a lifecycle action or teardown failed
//
// None of these abort the caller. They are logged and recorded on the app
// (see App.Errors).
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Action names the action involved, if any.
	Action string

	// Island is the id of the island the error occurred in, if any.
	Island string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying failure, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownAction indicates a dispatch named no visible action.
	ErrCodeUnknownAction RuntimeErrorCode = "UNKNOWN_ACTION"

	// ErrCodeBranchMismatch indicates a conditional marker disagreed with
	// the client-evaluated condition.
	ErrCodeBranchMismatch RuntimeErrorCode = "BRANCH_MISMATCH"

	// ErrCodeHydrationMismatch indicates server markup did not have the
	// node the view expected.
	ErrCodeHydrationMismatch RuntimeErrorCode = "HYDRATION_MISMATCH"

	// ErrCodeExternalCall indicates a fetch or storage step failed.
	ErrCodeExternalCall RuntimeErrorCode = "EXTERNAL_CALL"

	// ErrCodeLifecycleHook indicates a lifecycle action or a cleanup failed.
	ErrCodeLifecycleHook RuntimeErrorCode = "LIFECYCLE_HOOK"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Action != "" {
		msg += fmt.Sprintf(" (action=%s)", e.Action)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying failure.
func (e *RuntimeError) Unwrap() error { return e.Err }

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsUnknownActionError returns true if err is an unknown action error.
// Uses errors.As to handle wrapped errors.
func IsUnknownActionError(err error) bool { return hasCode(err, ErrCodeUnknownAction) }

// IsBranchMismatchError returns true if err is a branch mismatch.
func IsBranchMismatchError(err error) bool { return hasCode(err, ErrCodeBranchMismatch) }

// IsHydrationMismatchError returns true if err is a hydration mismatch.
func IsHydrationMismatchError(err error) bool { return hasCode(err, ErrCodeHydrationMismatch) }

// IsExternalCallError returns true if err is a failed fetch or storage step.
func IsExternalCallError(err error) bool { return hasCode(err, ErrCodeExternalCall) }

// IsLifecycleHookError returns true if err is a lifecycle or teardown failure.
func IsLifecycleHookError(err error) bool { return hasCode(err, ErrCodeLifecycleHook) }

// NewUnknownActionError creates a RuntimeError for a dispatch of name.
// suggestion is the closest visible action name, or empty.
func NewUnknownActionError(name, suggestion string) *RuntimeError {
	e := &RuntimeError{
		Code:    ErrCodeUnknownAction,
		Message: fmt.Sprintf("no action named %q in scope", name),
		Action:  name,
	}
	if suggestion != "" {
		e.Message += fmt.Sprintf(", did you mean %q?", suggestion)
		e.Details = map[string]string{"suggestion": suggestion}
	}
	return e
}

// NewBranchMismatchError creates a RuntimeError for a conditional whose
// server marker named a different branch.
func NewBranchMismatchError(server, client string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeBranchMismatch,
		Message: fmt.Sprintf("server rendered %s branch, client evaluated %s", server, client),
		Details: map[string]string{"server": server, "client": client},
	}
}

// NewHydrationMismatchError creates a RuntimeError for markup that did not
// match the expected node.
func NewHydrationMismatchError(expected, found string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeHydrationMismatch,
		Message: fmt.Sprintf("expected %s, found %s", expected, found),
		Details: map[string]string{"expected": expected, "found": found},
	}
}

// NewExternalCallError wraps a failed fetch or storage step.
func NewExternalCallError(action, step string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeExternalCall,
		Message: step + " failed",
		Action:  action,
		Err:     err,
	}
}

// NewLifecycleHookError wraps a failed lifecycle hook or cleanup.
func NewLifecycleHookError(hook string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeLifecycleHook,
		Message: hook + " failed",
		Details: map[string]string{"hook": hook},
		Err:     err,
	}
}
