package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// FieldError is one machine-readable entry of an error report.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Status  int          `json:"status"`
	Err     error        `json:"-"`
	Fields  []FieldError `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so clones of a sentinel compare
// equal to it under errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// Report returns the error entries rendered to clients. It is never empty:
// errors without field detail report themselves as a single entry.
func (e *Error) Report() []FieldError {
	if e == nil {
		return nil
	}
	if len(e.Fields) > 0 {
		out := make([]FieldError, len(e.Fields))
		copy(out, e.Fields)
		return out
	}
	return []FieldError{{Code: e.Code, Message: e.Message}}
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Internal wraps an unexpected failure as an internal error.
func Internal(err error, message string) *Error {
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, message)
}

// Predefined errors for common scenarios.
var (
	ErrNotFound        = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden       = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized    = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict        = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation      = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal        = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrUnavailable     = New("LOCK_UNAVAILABLE", http.StatusServiceUnavailable, "resource is busy, retry later")
	ErrDuplicateFile   = New("DUPLICATE_FILENAME", http.StatusBadRequest, "a file with this name already exists")
	ErrMissingFiles    = New("MISSING_FILES", http.StatusBadRequest, "deposit cannot be published")
	ErrStaleDeposit    = New("STALE_DEPOSIT", http.StatusConflict, "deposit was modified concurrently")
	ErrDepositNotDraft = New("FORBIDDEN", http.StatusForbidden, "deposit is published and can no longer be modified")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithFields returns a copy of err carrying the given field errors.
func WithFields(err *Error, fields ...FieldError) *Error {
	clone := Clone(err, "")
	if clone == nil {
		return nil
	}
	clone.Fields = append([]FieldError(nil), fields...)
	return clone
}

// Validation builds a validation error with a single field entry.
func Validation(field, message string) *Error {
	return WithFields(Clone(ErrValidation, message), FieldError{
		Field:   field,
		Code:    ErrValidation.Code,
		Message: message,
	})
}
