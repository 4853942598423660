// Package errors provides standardized domain errors that express business intent
// rather than infrastructure details. These errors should be used by use cases
// and mapped to caller-facing results by the outer layers.
package errors

import (
	"errors"
	"fmt"
)

// Standard domain errors that can be used across all domain modules.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data (e.g., duplicate key).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the request lacks valid authentication credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the authenticated caller doesn't have permission.
	ErrForbidden = errors.New("forbidden")
)

// Key management error kinds. Every error surfaced by the key management
// service wraps one of these, so callers can classify failures with errors.Is
// without depending on internal packages.
var (
	// ErrInvalidTenant indicates a missing, malformed, or suspicious tenant identifier.
	ErrInvalidTenant = fmt.Errorf("%w: invalid tenant", ErrInvalidInput)

	// ErrKeyNotFound indicates the key does not exist or is not visible to the
	// calling tenant. Cross-tenant lookups deliberately surface this same error.
	ErrKeyNotFound = fmt.Errorf("%w: key not found", ErrNotFound)

	// ErrEncryptionFailed indicates key material could not be created, fetched,
	// or unwrapped, including backend retry exhaustion.
	ErrEncryptionFailed = errors.New("encryption failed")

	// ErrRotationFailed indicates a rotation precondition was violated or a
	// concurrent rotation won the race for the same key.
	ErrRotationFailed = errors.New("rotation failed")

	// ErrUnauthorizedAccess indicates a caller identity failed validation.
	ErrUnauthorizedAccess = fmt.Errorf("%w: unauthorized access", ErrUnauthorized)

	// ErrAuditLogError indicates the audit trail could not be durably written.
	// Mutating operations fail closed on this error: no audit entry, no change.
	ErrAuditLogError = errors.New("audit log error")
)

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New for consistency.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
