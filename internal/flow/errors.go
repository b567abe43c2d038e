package flow

import "fmt"

// The four error kinds the state machines produce. None is fatal: every one
// is scoped to a single interaction and leaves conversation state exactly
// where it was, so the actor can retry or give up.

// ValidationError means the actor's input was malformed for the current
// step (bad choice index, out-of-range, empty required text, too few
// options). Always retryable.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// PreconditionError means the requested transition is not available right
// now (questionnaire missing, not active, no questions yet).
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string { return e.Msg }

func preconditionf(format string, args ...any) *PreconditionError {
	return &PreconditionError{Msg: fmt.Sprintf(format, args...)}
}

// AuthorizationError means a non-admin invoked an admin-only entry point,
// or an admin touched a questionnaire they do not own. Rejected before any
// state mutation.
type AuthorizationError struct {
	Msg string
}

func (e *AuthorizationError) Error() string { return e.Msg }

// StoreError wraps a persistence failure. Surfaced as a generic failure
// message; never silently swallowed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}
