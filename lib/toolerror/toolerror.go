// Copyright 2026 The Featured Authors
// SPDX-License-Identifier: Apache-2.0

// Package toolerror defines categorized errors for tool operations.
// The MCP façade inspects the category to produce structured error
// metadata alongside the human-readable text, so an agent can decide
// whether to fix its input, pick another feature, or back off and
// retry without parsing error strings.
package toolerror

import "fmt"

// Category classifies a tool error for programmatic handling.
type Category string

const (
	// CategoryValidation indicates the caller provided invalid input:
	// missing required parameters, out-of-range limits, unparseable
	// values. The caller should fix the input and retry. Validation
	// errors are raised before any store access.
	CategoryValidation Category = "validation"

	// CategoryNotFound indicates a referenced feature does not exist.
	// Retrying with the same parameters will not help.
	CategoryNotFound Category = "not_found"

	// CategoryInvalidState indicates the operation is forbidden by the
	// feature's current state, such as skipping a feature that already
	// passes. The feature is left unchanged.
	CategoryInvalidState Category = "invalid_state"

	// CategoryUnavailable indicates the store could not be reached.
	// The transaction, if any, was rolled back; nothing was written.
	// The caller may back off and retry.
	CategoryUnavailable Category = "unavailable"

	// CategoryInternal indicates an unexpected error: bugs, I/O
	// failures, corrupt rows. The caller should report the error
	// rather than retry.
	CategoryInternal Category = "internal"
)

// Retryable reports whether repeating the same call might succeed.
// Only unavailable errors are retryable; the other categories require
// a change of input or state first.
func (c Category) Retryable() bool { return c == CategoryUnavailable }

// Error is a categorized error returned by engine operations. It wraps
// an inner error, preserving the chain for errors.Is/errors.As while
// adding category metadata for the façade.
//
// Use the category-specific constructors (Validation, NotFound, ...)
// rather than constructing Error directly.
type Error struct {
	// Category classifies the error.
	Category Category

	// Err is the underlying error with the human-readable message.
	Err error
}

// Error returns the underlying message. The category is not included
// in the string — it travels separately in the MCP errorInfo field.
func (e *Error) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error so errors.Is and errors.As can
// walk the full chain.
func (e *Error) Unwrap() error { return e.Err }

// Validation creates a validation error: the caller provided bad input.
func Validation(format string, args ...any) *Error {
	return &Error{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error: the referenced feature is absent.
func NotFound(format string, args ...any) *Error {
	return &Error{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// InvalidState creates an invalid-state error: the feature's current
// state forbids the operation.
func InvalidState(format string, args ...any) *Error {
	return &Error{Category: CategoryInvalidState, Err: fmt.Errorf(format, args...)}
}

// Unavailable creates an unavailable error: the store is unreachable.
func Unavailable(format string, args ...any) *Error {
	return &Error{Category: CategoryUnavailable, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error: an unexpected failure or bug.
func Internal(format string, args ...any) *Error {
	return &Error{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}
