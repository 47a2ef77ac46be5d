// Package errors provides standardized domain errors that express business intent
// rather than infrastructure details. Backend adapters translate native store errors
// into these sentinels before returning, and handlers map them to HTTP status codes.
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

	// ErrBackendUnavailable indicates a backing store could not be reached or timed out.
	// It is transient: callers may retry later.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrBackendRejected indicates a backing store was reachable but declined the operation
	// (version conflict, permission denied, malformed request).
	ErrBackendRejected = errors.New("backend rejected")

	// ErrPersistenceFailed indicates local recovery material could not be read or written.
	ErrPersistenceFailed = errors.New("persistence failed")

	// ErrLifecycleFatal indicates a ready vault handle cannot be safely obtained.
	// Operations depending on the handle must short-circuit instead of touching the store.
	ErrLifecycleFatal = errors.New("lifecycle fatal")
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

// Wrapf wraps an error with a formatted message while preserving the error chain.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Join wraps err with a taxonomy sentinel so that both errors.Is(result, kind) and
// errors.Is(result, err) hold. Returns nil if err is nil.
func Join(kind, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", kind, err)
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

// IsBackendError reports whether err belongs to the "try again later" side of the
// taxonomy rather than the "your request was bad" side.
func IsBackendError(err error) bool {
	return errors.Is(err, ErrBackendUnavailable) ||
		errors.Is(err, ErrBackendRejected) ||
		errors.Is(err, ErrPersistenceFailed) ||
		errors.Is(err, ErrLifecycleFatal)
}
