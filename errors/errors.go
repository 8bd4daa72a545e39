// Package errors is the error vocabulary of dqa.
//
// It re-exports github.com/cockroachdb/errors so every package wraps with
// stack traces and hints the same way, and it defines the sentinels the
// round scheduler and store use to classify failures:
//
//	if errors.IsFatalConfig(err) {
//	    // the job never started, nothing to roll back
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing hints and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
	FlattenHints       = crdb.FlattenHints
	GetAllHints        = crdb.GetAllHints
)

// Inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

var (
	// ErrNotFound indicates the requested row or job does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates malformed input from a caller
	ErrInvalidRequest = New("invalid request")

	// ErrConflict indicates the target already exists and may not be replaced
	ErrConflict = New("resource conflict")

	// ErrFatalConfig marks failures that stop a job before it starts:
	// an invalid restart round, missing seed data, or a job that was
	// already finalized.
	ErrFatalConfig = New("fatal configuration error")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// IsFatalConfig reports whether err was marked as a fatal configuration error.
func IsFatalConfig(err error) bool {
	return err != nil && Is(err, ErrFatalConfig)
}

// FatalConfigf creates an error marked with ErrFatalConfig.
func FatalConfigf(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrFatalConfig)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrNotFound)
}
