// Package domain holds the pure domain types shared across modules:
// lifecycle actions, the authorization context, and the error taxonomy.
// It has no infrastructure dependencies.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors used across the booking engine. Callers distinguish
// outcomes with errors.Is so the HTTP layer can map them to status codes
// (NotFound vs Forbidden matters: 404 must not leak as 403 or vice versa).
var (
	// ErrNotFound indicates no active version exists for a business trade id.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the caller is not permitted to perform the action.
	ErrForbidden = errors.New("forbidden")

	// ErrReferenceData indicates a required reference-data lookup (book,
	// counterparty, status) failed to resolve. Configuration/data problem,
	// never silently defaulted.
	ErrReferenceData = errors.New("reference data missing")

	// ErrInvalidSchedule indicates an unresolvable payment schedule string.
	ErrInvalidSchedule = errors.New("invalid schedule format")

	// ErrInvalidOperator indicates an unsupported query comparison operator.
	ErrInvalidOperator = errors.New("unsupported operator")

	// ErrUnknownField indicates a query field path that does not resolve
	// against the trade schema.
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidQuery indicates a query expression that failed to parse.
	ErrInvalidQuery = errors.New("invalid query expression")
)

// ValidationError carries the full set of business-rule violations from a
// validation run. All messages are surfaced together; none are dropped.
type ValidationError struct {
	Errors []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// NewValidationError wraps a list of violation messages.
func NewValidationError(msgs []string) *ValidationError {
	return &ValidationError{Errors: msgs}
}

// NotFoundf builds a wrapped ErrNotFound with context.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// Forbiddenf builds a wrapped ErrForbidden with context.
func Forbiddenf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrForbidden)...)
}
