// Package regerrors defines the error taxonomy shared by the registry core.
// Every failure the core returns is one of four kinds: NotFound, Validation,
// Conflict or Internal. Callers branch on the kind, never on message text.
package regerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a registry error.
type Kind string

const (
	// KindNotFound marks a missing aggregate, version or source.
	KindNotFound Kind = "not_found"
	// KindValidation marks a business-rule violation.
	KindValidation Kind = "validation"
	// KindConflict marks a unique-constraint race exhausted after retries.
	KindConflict Kind = "conflict"
	// KindInternal marks anything unexpected.
	KindInternal Kind = "internal"
)

// Error is a structured registry error.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	// Field carries field-level detail for validation errors, empty otherwise.
	Field string `json:"field,omitempty"`
	Err   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound returns a KindNotFound error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation returns a KindValidation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationField returns a KindValidation error carrying field detail.
func ValidationField(field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Conflict returns a KindConflict error wrapping the exhausted cause.
func Conflict(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...), Err: cause}
}

// Internal wraps an unexpected error.
func Internal(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the kind of err, or KindInternal for untyped errors.
// A nil err has no kind and returns "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsNotFound reports whether err is a KindNotFound error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsValidation reports whether err is a KindValidation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsConflict reports whether err is a KindConflict error.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }
