// Package errors provides error handling for ScholarStream.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints for operator-facing messages
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, ErrConfig) {
//	    // handle configuration failure
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection and marking
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
	Mark      = crdb.Mark
)

// GetStack is an alias for GetReportableStackTrace for convenience.
var GetStack = crdb.GetReportableStackTrace

// Common sentinel errors for use across ScholarStream.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrConfig indicates a missing or invalid configuration setting.
	// Runs fail fast on this before any network activity.
	ErrConfig = New("invalid configuration")

	// ErrFetch indicates a fatal upstream transport failure (non-2xx,
	// non-429). It terminates the fetch sequence and the run.
	ErrFetch = New("fetch failed")

	// ErrValidation indicates a raw record whose declared fields carry
	// incompatible types. Distinguishable from transport errors so the
	// pipeline can apply its skip policy.
	ErrValidation = New("record validation failed")

	// ErrBatchTooLarge indicates a delivery batch above the transport
	// ceiling. The sink rejects rather than truncates.
	ErrBatchTooLarge = New("batch exceeds delivery ceiling")
)

// IsConfigError checks if an error is or wraps ErrConfig
func IsConfigError(err error) bool {
	return err != nil && Is(err, ErrConfig)
}

// IsValidationError checks if an error is or wraps ErrValidation
func IsValidationError(err error) bool {
	return err != nil && Is(err, ErrValidation)
}

// IsFetchError checks if an error is or wraps ErrFetch
func IsFetchError(err error) bool {
	return err != nil && Is(err, ErrFetch)
}

// NewConfigError creates a configuration error naming the offending setting
func NewConfigError(format string, args ...interface{}) error {
	return Wrap(ErrConfig, Newf(format, args...).Error())
}

// NewValidationError creates a validation error with a formatted message
func NewValidationError(format string, args ...interface{}) error {
	return Wrap(ErrValidation, Newf(format, args...).Error())
}
