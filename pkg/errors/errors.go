// Package errors provides structured error types for parttree.
//
// This package defines error codes and types that enable:
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages in the CLI
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes follow a hierarchical naming convention:
//   - INVALID_*: caller misuse (bad index, bad path grammar, lifecycle misuse)
//   - *_NOT_FOUND: path resolution failures
//   - INTERNAL_*: unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidIndex, "insert at %d beyond length %d", i, n)
//	if errors.Is(err, errors.ErrCodeInvalidIndex) {
//	    // Handle structural misuse
//	}
//
//	// Wrap a package sentinel so both the code and the sentinel match
//	err := errors.Wrap(errors.ErrCodePathNotFound, tree.ErrPathNotFound, "segment %q", seg)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Structural and lifecycle misuse
	ErrCodeInvalidIndex    Code = "INVALID_INDEX"
	ErrCodeStaleIterator   Code = "STALE_ITERATOR"
	ErrCodeInvalidPath     Code = "INVALID_PATH"
	ErrCodeInvalidName     Code = "INVALID_NAME"
	ErrCodeInvalidState    Code = "INVALID_STATE"
	ErrCodeNotAttached     Code = "NOT_ATTACHED"
	ErrCodeTypeMismatch    Code = "TYPE_MISMATCH"
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidScenario Code = "INVALID_SCENARIO"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"

	// Lookup errors
	ErrCodePathNotFound Code = "PATH_NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Scenario assertions
	ErrCodeExpectationFailed Code = "EXPECTATION_FAILED"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// ExpectationError reports a failed scenario assertion.
type ExpectationError struct {
	Path string // Full path of the checked property
	Want any
	Got  any
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	return fmt.Sprintf("expected %s = %v, got %v", e.Path, e.Want, e.Got)
}

// Code returns the error code for this error type.
func (e *ExpectationError) Code() Code {
	return ErrCodeExpectationFailed
}
