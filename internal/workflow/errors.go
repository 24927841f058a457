// Package workflow implements the card-move authorization and transition
// engine: the validation gates, the move command with undo support, and
// the executor that keeps per-session command history.
package workflow

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure so callers can map it to a
// user-facing response without parsing message text.
type Kind int

const (
	// KindUnexpected covers storage failures and anything else that is
	// not an anticipated validation outcome. Always logged, never swallowed.
	KindUnexpected Kind = iota

	// KindInvalidInput - malformed or missing identifiers, identical
	// source and destination, unknown pipeline/column/card.
	KindInvalidInput

	// KindUnauthorized - the actor lacks the move-out or move-in role for
	// the respective column.
	KindUnauthorized

	// KindInvalidTransition - no configured rule for the (from,to) pair,
	// the actor lacks the transition-specific role, or the rule document
	// is malformed.
	KindInvalidTransition

	// KindInvalidEntityType - the card's entity type is not accepted by
	// the destination column.
	KindInvalidEntityType

	// KindNoHistory - undo requested with an empty command history.
	KindNoHistory

	// KindConflict - a concurrent move of the same card won the race;
	// the caller may re-read and retry.
	KindConflict
)

// String returns the stable name of the kind, used in CLI output and logs.
func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindInvalidEntityType:
		return "invalid_entity_type"
	case KindNoHistory:
		return "no_history"
	case KindConflict:
		return "conflict"
	default:
		return "unexpected"
	}
}

// Error is the engine's tagged error type. Validation gates return plain
// results internally; the command boundary wraps failures into an Error
// so callers can branch on Kind with errors.As.
type Error struct {
	Kind  Kind
	msg   string
	cause error
}

// Error implements the error interface.
func (e *Error) Error() string { return e.msg }

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// NewError creates an engine error of the given kind.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

// WrapError creates an engine error that preserves its cause for
// errors.Is/errors.As chains.
func WrapError(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, msg: msg, cause: cause}
}

func errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, returning KindUnexpected for nil
// matches and non-engine errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// IsValidation reports whether err is an anticipated, recoverable-by-caller
// condition (as opposed to a storage or programming failure).
func IsValidation(err error) bool {
	switch KindOf(err) {
	case KindInvalidInput, KindUnauthorized, KindInvalidTransition, KindInvalidEntityType:
		return true
	default:
		return false
	}
}
