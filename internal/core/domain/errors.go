// Package domain defines the core domain models for GarageBook.
package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DomainError represents a business domain error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "GB-AUTH-4010")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Transport Errors
// ============================================================================

var (
	// ErrTokenExpired indicates the anti-forgery token was rejected as stale (HTTP 419)
	// and the single refresh-and-retry did not recover it.
	ErrTokenExpired = NewDomainError("GB-AUTH-4190", "csrf token expired")

	// ErrUnauthenticated indicates the remote session is gone (HTTP 401).
	ErrUnauthenticated = NewDomainError("GB-AUTH-4010", "unauthenticated")

	// ErrValidationFailed indicates the server rejected the payload field by field (HTTP 422).
	ErrValidationFailed = NewDomainError("GB-VAL-4220", "validation failed")

	// ErrTransport indicates any other non-success HTTP response.
	ErrTransport = NewDomainError("GB-SYS-5000", "request failed")

	// ErrNetwork indicates the exchange never produced an HTTP response.
	ErrNetwork = NewDomainError("GB-SYS-5030", "network error")

	// ErrTokenRefresh indicates the csrf issuance endpoint itself failed.
	ErrTokenRefresh = NewDomainError("GB-AUTH-5001", "csrf token refresh failed")
)

// ============================================================================
// Model Errors
// ============================================================================

var (
	// ErrInvalidStatus indicates an appointment status outside the allowed set.
	ErrInvalidStatus = NewDomainError("GB-APPT-4001", "invalid appointment status")

	// ErrInvalidTimestamp indicates an unparseable appointment time.
	ErrInvalidTimestamp = NewDomainError("GB-APPT-4002", "invalid timestamp")

	// ErrInvalidDate indicates an unparseable calendar date.
	ErrInvalidDate = NewDomainError("GB-APPT-4003", "invalid date")

	// ErrNotFound indicates the record is not in the local cache.
	ErrNotFound = NewDomainError("GB-SYS-4040", "not found")

	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("GB-ARG-1001", "invalid argument")
)

// ValidationError is the structured form of an HTTP 422 response.
// Fields maps each rejected field to the server's messages for it.
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.Message == "" {
			return ErrValidationFailed.Error()
		}
		return ErrValidationFailed.WithDetails(e.Message).Error()
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(e.Fields[name], ", "))
	}
	return ErrValidationFailed.WithDetails(strings.Join(parts, "; ")).Error()
}

// Unwrap lets errors.Is(err, ErrValidationFailed) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// FieldErrors returns the messages for a single field.
func (e *ValidationError) FieldErrors(field string) []string {
	return e.Fields[field]
}

// StatusError carries a non-special HTTP failure unchanged.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
	Body    []byte
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message != "" {
		return ErrTransport.WithDetails(fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)).Error()
	}
	return ErrTransport.WithDetails(fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)).Error()
}

// Unwrap lets errors.Is(err, ErrTransport) match.
func (e *StatusError) Unwrap() error {
	return ErrTransport
}
