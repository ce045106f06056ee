// Package errors provides structured error types for nope.
//
// Every failure the repository, resolver, and lockfile layers report carries
// a machine-readable [Code], so the CLI can tell a conflicting pin apart from
// a missing package without matching on message text.
//
// # Error Codes
//
// Codes map onto the failure taxonomy of the tool:
//   - UNKNOWN_PACKAGE / UNKNOWN_VERSION: repository lookup misses
//   - ALREADY_INSTALLED: the target version directory is populated
//   - CORRUPT_METADATA: dist-info metadata is missing or unparsable
//   - UNSATISFIED_REQUIREMENT: no candidate satisfied a requirement
//   - CYCLIC_REQUIREMENT: a candidate requires itself transitively
//   - CONFLICTING_PIN: a lockfile already pins another version
//   - UNRESOLVED_PIN: a pinned version is not present in any root
//   - FETCH_FAILED: the external fetcher exited unsuccessfully
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownPackage, "package %s is not installed", name)
//	if errors.Is(err, errors.ErrCodeUnknownPackage) {
//	    // Handle lookup miss
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeCorruptMetadata, origErr, "read %s", path)
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
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidPackage Code = "INVALID_PACKAGE"
	ErrCodeInvalidVersion Code = "INVALID_VERSION"
	ErrCodeInvalidPath    Code = "INVALID_PATH"

	// Repository errors
	ErrCodeUnknownPackage   Code = "UNKNOWN_PACKAGE"
	ErrCodeUnknownVersion   Code = "UNKNOWN_VERSION"
	ErrCodeAlreadyInstalled Code = "ALREADY_INSTALLED"
	ErrCodeCorruptMetadata  Code = "CORRUPT_METADATA"
	ErrCodeFileNotFound     Code = "FILE_NOT_FOUND"

	// Resolution errors
	ErrCodeUnsatisfied Code = "UNSATISFIED_REQUIREMENT"
	ErrCodeCyclic      Code = "CYCLIC_REQUIREMENT"

	// Lockfile and bootstrap errors
	ErrCodeConflictingPin Code = "CONFLICTING_PIN"
	ErrCodeInvalidLock    Code = "INVALID_LOCKFILE"
	ErrCodeUnresolvedPin  Code = "UNRESOLVED_PIN"

	// External fetcher errors
	ErrCodeFetchFailed Code = "FETCH_FAILED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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

// Coder is implemented by error types that carry a [Code] without being an
// *Error, such as the resolver's aggregate failure.
type Coder interface {
	ErrorCode() Code
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error or [Coder] with a matching
// code. The outermost coded error wins.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if no error in the chain carries a code.
func GetCode(err error) Code {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Code
		case Coder:
			return e.ErrorCode()
		}
		err = errors.Unwrap(err)
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
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
