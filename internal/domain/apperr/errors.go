// Package apperr defines the typed failures returned by every inventory
// operation. Domain packages wrap one of the sentinels below so callers can
// branch with errors.Is regardless of where the failure was raised.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind string

const (
	KindValidation           Kind = "validation_error"
	KindNotFound             Kind = "not_found"
	KindInvalidTransition    Kind = "invalid_transition"
	KindInsufficientStock    Kind = "insufficient_stock"
	KindInvariantViolation   Kind = "invariant_violation"
	KindDuplicateActiveAlert Kind = "duplicate_active_alert"
	KindAlreadyResolved      Kind = "already_resolved"
	KindConflict             Kind = "conflict"
	KindInternal             Kind = "internal"
)

// Sentinels for errors.Is. Only the kind is compared.
var (
	ErrValidation           = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrNotFound             = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInvalidTransition    = &Error{Kind: KindInvalidTransition, Message: "invalid transition"}
	ErrInsufficientStock    = &Error{Kind: KindInsufficientStock, Message: "insufficient stock"}
	ErrInvariantViolation   = &Error{Kind: KindInvariantViolation, Message: "invariant violation"}
	ErrDuplicateActiveAlert = &Error{Kind: KindDuplicateActiveAlert, Message: "an active alert of this type already exists"}
	ErrAlreadyResolved      = &Error{Kind: KindAlreadyResolved, Message: "alert is already resolved"}
	ErrConflict             = &Error{Kind: KindConflict, Message: "conflict"}
	ErrInternal             = &Error{Kind: KindInternal, Message: "internal error"}
)

// FieldError describes one failing input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the failure value crossing the operation boundary.
type Error struct {
	Kind    Kind         `json:"kind"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
	Err     error        `json:"-"`
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return newf(KindValidation, format, args...)
}

// ValidationFields builds a validation failure carrying per-field details.
func ValidationFields(fields []FieldError) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

func NotFound(format string, args ...any) *Error {
	return newf(KindNotFound, format, args...)
}

func InvalidTransition(format string, args ...any) *Error {
	return newf(KindInvalidTransition, format, args...)
}

func InsufficientStock(format string, args ...any) *Error {
	return newf(KindInsufficientStock, format, args...)
}

func InvariantViolation(format string, args ...any) *Error {
	return newf(KindInvariantViolation, format, args...)
}

func DuplicateActiveAlert(format string, args ...any) *Error {
	return newf(KindDuplicateActiveAlert, format, args...)
}

func AlreadyResolved(format string, args ...any) *Error {
	return newf(KindAlreadyResolved, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newf(KindConflict, format, args...)
}

// Internal wraps an unexpected error (store, broker) so it never escapes raw.
func Internal(err error, format string, args ...any) *Error {
	e := newf(KindInternal, format, args...)
	e.Err = err
	return e
}

// From converts any error into an *Error, classifying unknown errors as
// Internal. A nil error stays nil.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err, "internal error: %v", err)
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
