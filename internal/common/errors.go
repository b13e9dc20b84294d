// Package common defines shared sentinel errors and small helpers used
// across userhub components. Callers should use errors.Is to match these
// values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Conflict covers uniqueness violations, invalid verification/reset
	// codes, unverified logins and exhausted unique-value generation.
	ErrConflict = errors.New("conflict")

	// Validation covers malformed or incomplete external input,
	// e.g. an OAuth profile without a usable email.
	ErrValidation = errors.New("validation error")

	// Transient covers directory/notification I/O failures that the
	// caller may retry.
	ErrTransient = errors.New("transient error")

	// Generic internal flow control.
	ErrInternal = errors.New("internal error")

	// Token lifecycle errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Conflictf wraps ErrConflict with a human-readable reason.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}

// Validationf wraps ErrValidation with a human-readable reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// Transientf wraps ErrTransient, keeping the underlying cause out of
// client-facing messages while preserving it for logs via %v.
func Transientf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrTransient}, args...)...)
}
