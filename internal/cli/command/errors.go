package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/yndnr/garagebook-go/internal/core/domain"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitUsage      = 2
	ExitAuth       = 3
	ExitValidation = 4
	ExitNetwork    = 5
	ExitCancelled  = 130
)

// errInvalidCredentials wraps a rejected login.
var errInvalidCredentials = errors.New("invalid email or password")

// errNotLoggedIn is returned by commands that need an identity when none is held.
var errNotLoggedIn = domain.ErrUnauthenticated.WithDetails("not logged in")

// Describe renders err for the terminal. Validation errors list one line per field.
func Describe(err error) string {
	var verr *domain.ValidationError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "interrupted"
	case errors.As(err, &verr):
		return describeValidation(verr)
	case errors.Is(err, errInvalidCredentials):
		return errInvalidCredentials.Error()
	case errors.Is(err, domain.ErrUnauthenticated):
		return fmt.Sprintf("session expired or not logged in, run '%s login'", AppName)
	case errors.Is(err, domain.ErrTokenExpired):
		return "the server kept rejecting the CSRF token, try again"
	case errors.Is(err, domain.ErrNetwork):
		return "cannot reach the server: " + rootCause(err).Error()
	default:
		return err.Error()
	}
}

func describeValidation(e *domain.ValidationError) string {
	var b strings.Builder
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString("the server rejected the request")
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "\n  %s: %s", name, strings.Join(e.Fields[name], "; "))
	}
	return b.String()
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitCancelled
	case errors.Is(err, domain.ErrUnauthenticated):
		return ExitAuth
	case errors.Is(err, domain.ErrValidationFailed):
		return ExitValidation
	case errors.Is(err, domain.ErrNetwork):
		return ExitNetwork
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidTimestamp),
		errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, errUsage):
		return ExitUsage
	default:
		return ExitFailure
	}
}

// errUsage marks command-line mistakes.
var errUsage = errors.New("usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}
