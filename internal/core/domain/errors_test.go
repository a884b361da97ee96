package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("GB-TEST-1000", "test message"),
			expected: "[GB-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("GB-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[GB-TEST-1001] test message: extra info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("GB-TEST-1000", "message 1")
	err2 := NewDomainError("GB-TEST-1000", "message 2")
	err3 := NewDomainError("GB-TEST-1001", "message 1")

	assert.True(t, errors.Is(err1, err2), "same code should match")
	assert.False(t, errors.Is(err1, err3), "different code should not match")
	assert.False(t, errors.Is(err1, fmt.Errorf("some error")))
}

func TestDomainError_WithCause(t *testing.T) {
	original := NewDomainError("GB-TEST-1000", "original message")
	cause := fmt.Errorf("root cause")
	withCause := original.WithCause(cause)

	assert.Nil(t, original.Cause, "WithCause should not modify original error")
	assert.Same(t, cause, errors.Unwrap(withCause))
	assert.Equal(t, original.Code, withCause.Code)
}

func TestIsDomainError(t *testing.T) {
	wrapped := fmt.Errorf("wrapped: %w", ErrUnauthenticated)

	assert.True(t, IsDomainError(ErrUnauthenticated, "GB-AUTH-4010"))
	assert.True(t, IsDomainError(wrapped, "GB-AUTH-4010"))
	assert.True(t, IsDomainError(wrapped, ""))
	assert.False(t, IsDomainError(ErrUnauthenticated, "GB-AUTH-9999"))
	assert.False(t, IsDomainError(fmt.Errorf("regular error"), ""))
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"domain error", ErrTokenExpired, "GB-AUTH-4190"},
		{"wrapped domain error", fmt.Errorf("wrapped: %w", ErrNetwork), "GB-SYS-5030"},
		{"validation error", &ValidationError{Message: "bad"}, "GB-VAL-4220"},
		{"status error", &StatusError{Status: 500}, "GB-SYS-5000"},
		{"regular error", fmt.Errorf("regular error"), ""},
		{"nil error", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorCode(tt.err))
		})
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Message: "The given data was invalid.",
		Fields: map[string][]string{
			"phone": {"The phone field is required."},
			"email": {"The email must be a valid email address.", "The email is taken."},
		},
	}

	var wrapped error = fmt.Errorf("create appointment: %w", err)
	require.ErrorIs(t, wrapped, ErrValidationFailed)
	assert.NotErrorIs(t, wrapped, ErrTransport)

	var ve *ValidationError
	require.ErrorAs(t, wrapped, &ve)
	assert.Equal(t, []string{"The phone field is required."}, ve.FieldErrors("phone"))
	assert.Nil(t, ve.FieldErrors("name"))

	assert.Equal(t,
		"[GB-VAL-4220] validation failed: email: The email must be a valid email address., The email is taken.; phone: The phone field is required.",
		err.Error())
}

func TestValidationError_NoFields(t *testing.T) {
	assert.Equal(t, "[GB-VAL-4220] validation failed", (&ValidationError{}).Error())
	assert.Equal(t, "[GB-VAL-4220] validation failed: nope", (&ValidationError{Message: "nope"}).Error())
}

func TestStatusError(t *testing.T) {
	err := &StatusError{Method: "GET", Path: "/api/appointments", Status: 503, Message: "down"}

	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, "[GB-SYS-5000] request failed: GET /api/appointments: status 503: down", err.Error())

	bare := &StatusError{Method: "DELETE", Path: "/api/x/1", Status: 404}
	assert.Equal(t, "[GB-SYS-5000] request failed: DELETE /api/x/1: status 404", bare.Error())
}
