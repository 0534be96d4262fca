// Package errors provides structured error types for passforge.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the pass manager, CLI and HTTP API
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures (configs, graphs, options)
//   - UNSATISFIABLE_*, SCHEDULE_*, *_PASS: pass ordering failures
//   - SIGNATURE_MISMATCH: a check function registered with the wrong arity
//   - CHECK_FAILED, PASS_FAILED: failures raised while a pipeline runs
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownPass, "unknown pass %q", name)
//	if errors.Is(err, errors.ErrCodeUnknownPass) {
//	    // Handle ordering error
//	}
//
//	// Wrap existing errors; the cause stays reachable through errors.As
//	err := errors.Wrap(errors.ErrCodeCheckFailed, origErr, "check failed after pass %q", name)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidGraph  Code = "INVALID_GRAPH"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Pass ordering errors
	ErrCodeUnsatisfiableConstraints Code = "UNSATISFIABLE_CONSTRAINTS"
	ErrCodeScheduleViolated         Code = "SCHEDULE_VIOLATED"
	ErrCodeUnknownPass              Code = "UNKNOWN_PASS"
	ErrCodeDuplicatePass            Code = "DUPLICATE_PASS"

	// Registration errors
	ErrCodeSignatureMismatch Code = "SIGNATURE_MISMATCH"

	// Execution errors
	ErrCodeCheckFailed Code = "CHECK_FAILED"
	ErrCodePassFailed  Code = "PASS_FAILED"

	// Resource errors
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

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
// It unwraps the error chain looking for an *Error with a matching code,
// so a CHECK_FAILED wrapped inside a PASS_FAILED is still found.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
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
		if e.Cause != nil {
			return e.Message + ": " + UserMessage(e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
