// Package shared contains the error taxonomy and domain event plumbing used by
// every attendance package.
package shared

import (
	"context"
	"errors"
	"fmt"
)

// Base error kinds, checked with errors.Is().
var (
	// Input was malformed; rejected before touching storage.
	ErrValidation = errors.New("validation error")

	// The caller is authenticated but may not act on the target event.
	ErrForbidden = errors.New("forbidden")

	// The caller could not be authenticated.
	ErrUnauthorized = errors.New("unauthorized")

	// An event, student or participation does not exist.
	ErrNotFound = errors.New("entity not found")

	// The request contradicts current participation state.
	ErrConflict = errors.New("conflict")

	// Infrastructure failures.
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g. "attendance", "auth"
	Op      string // operation that failed, e.g. "ScanIn"
	Kind    error  // base kind for errors.Is() checking
	Message string // human-readable message, safe to show to API clients
	Err     error  // underlying error (optional)

	// Details holds per-field messages for validation failures.
	Details map[string]string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error, or the kind when there is none.
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches the kind, the wrapped error, or another DomainError with the
// same domain, op and message.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	var other *DomainError
	if errors.As(target, &other) {
		return e.Domain == other.Domain && e.Op == other.Op && e.Message == other.Message
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// NewValidationError builds a validation error for a single field.
func NewValidationError(op, field, message string) *DomainError {
	return &DomainError{
		Domain:  "attendance",
		Op:      op,
		Kind:    ErrValidation,
		Message: fmt.Sprintf("%s: %s", field, message),
	}
}

// NewFieldsValidationError builds a validation error carrying per-field details.
func NewFieldsValidationError(op string, fields map[string]string) *DomainError {
	return &DomainError{
		Domain:  "attendance",
		Op:      op,
		Kind:    ErrValidation,
		Message: "the given data was invalid",
		Details: fields,
	}
}

// Attendance domain errors
var (
	ErrEventNotFound         = NewDomainError("attendance", "LookupEvent", ErrNotFound, "event not found")
	ErrStudentNotFound       = NewDomainError("attendance", "LookupStudent", ErrNotFound, "student not found")
	ErrParticipationNotFound = NewDomainError("attendance", "FindParticipation", ErrNotFound, "participation not found")
	ErrNoOpenSession         = NewDomainError("attendance", "ScanOut", ErrNotFound, "student has no active session for this event")
	ErrSessionCompleted      = NewDomainError("attendance", "ScanIn", ErrConflict, "student already completed attendance for this event")
	ErrDuplicateOpenSession  = NewDomainError("attendance", "Create", ErrConflict, "student already has an active session for this event")
	ErrNotEventManager       = NewDomainError("attendance", "Authorize", ErrForbidden, "you are not allowed to manage this event")
	ErrInvalidTimeRange      = NewDomainError("attendance", "Validate", ErrValidation, "time_out must be after time_in")
)

// Auth errors
var (
	ErrInvalidCredentials = NewDomainError("auth", "Authenticate", ErrUnauthorized, "invalid credentials")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsForbidden checks if the error is an authorization error.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsUnauthorized checks if the error is an authentication error.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsConflict checks if the error is a state conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// KindOf returns a short label for err's kind, used for metrics and API codes.
func KindOf(err error) string {
	switch {
	case err == nil:
		return "none"
	case IsValidation(err):
		return "validation"
	case IsForbidden(err):
		return "forbidden"
	case IsUnauthorized(err):
		return "unauthorized"
	case IsNotFound(err):
		return "not_found"
	case IsConflict(err):
		return "conflict"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	case errors.Is(err, ErrServiceUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}

// PublicMessage returns the client-safe message of the outermost DomainError.
func PublicMessage(err error) (string, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message, true
	}
	return "", false
}
