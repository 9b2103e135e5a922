// Package apperr defines the error taxonomy shared by the repositories,
// the notification dispatcher and the outer surfaces.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can react without string matching.
type Kind string

const (
	// InvalidInput is an empty required field, a malformed date or email.
	// It is raised before any store access and is never retried.
	InvalidInput Kind = "invalid_input"

	// AuthRequired means the operation needs an authenticated user.
	AuthRequired Kind = "auth_required"

	// Forbidden means the user is authenticated but may not do this.
	Forbidden Kind = "forbidden"

	// NotFound is only raised for single-document lookups.
	NotFound Kind = "not_found"

	// Persistence wraps a rejected store call.
	Persistence Kind = "persistence"

	// Notification is a failed push or mail delivery. It never leaves
	// the notify package.
	Notification Kind = "notification"
)

// Error carries the kind, the operation that failed and the cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds an *Error. msg is formatted with args and becomes the cause.
func E(kind Kind, op string, msg string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(msg, args...)}
}

// Wrap attaches a kind to an existing error. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or ""
// when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err (or any error in its chain) is an *Error of kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
