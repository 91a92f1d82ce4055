package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes errors that cross the public API.
type ErrorCode string

const (
	// CodeValidation indicates a nil or disabled root object.
	CodeValidation ErrorCode = "VALIDATION"

	// CodeDecodeStructure indicates a document that cannot be decoded at all:
	// wrong root shape, unresolvable root type or malformed markup.
	CodeDecodeStructure ErrorCode = "DECODE_STRUCTURE"

	// CodeVerificationFailed indicates one or more mismatches between the
	// actual object and a benchmark.
	CodeVerificationFailed ErrorCode = "VERIFICATION_FAILED"

	// CodeResource indicates a medium that cannot be opened, read or written.
	CodeResource ErrorCode = "RESOURCE"

	// CodeUnsupported indicates an operation the medium cannot perform.
	CodeUnsupported ErrorCode = "UNSUPPORTED"
)

var (
	// ErrNotEnabled marks a disabled child. Encoders skip it; it never
	// reaches callers.
	ErrNotEnabled = errors.New("persistable is not enabled")

	// ErrTypeNotRegistered is returned when a type name has no factory.
	ErrTypeNotRegistered = errors.New("type not registered")

	// ErrUnknownField is returned when a key matches no field and the type
	// cannot keep extras.
	ErrUnknownField = errors.New("unknown field")
)

// Error is the structured error returned by encode, decode, persist and
// verify operations.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Resource names the file, variable prefix or benchmark involved.
	Resource string

	// Diagnostics holds one line per aggregated problem (every mismatch of
	// a failed verification, for example).
	Diagnostics []string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Resource != "" {
		fmt.Fprintf(&b, " (resource=%s)", e.Resource)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	for _, d := range e.Diagnostics {
		b.WriteString("\n")
		b.WriteString(d)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// NewValidationError creates a CodeValidation error.
func NewValidationError(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

// NewDecodeError creates a CodeDecodeStructure error.
func NewDecodeError(resource, message string, err error) *Error {
	return &Error{Code: CodeDecodeStructure, Message: message, Resource: resource, Err: err}
}

// NewVerificationFailure creates a CodeVerificationFailed error carrying
// every mismatch description.
func NewVerificationFailure(resource string, diagnostics []string) *Error {
	return &Error{
		Code:        CodeVerificationFailed,
		Message:     fmt.Sprintf("%d verification failure(s)", len(diagnostics)),
		Resource:    resource,
		Diagnostics: diagnostics,
	}
}

// NewResourceError creates a CodeResource error.
func NewResourceError(resource, message string, err error) *Error {
	return &Error{Code: CodeResource, Message: message, Resource: resource, Err: err}
}

// NewUnsupportedError creates a CodeUnsupported error.
func NewUnsupportedError(message string) *Error {
	return &Error{Code: CodeUnsupported, Message: message}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

// IsDecodeStructure reports whether err is a decode structure error.
func IsDecodeStructure(err error) bool { return CodeOf(err) == CodeDecodeStructure }

// IsVerificationFailure reports whether err is a verification failure.
func IsVerificationFailure(err error) bool { return CodeOf(err) == CodeVerificationFailed }

// IsResource reports whether err is a resource error.
func IsResource(err error) bool { return CodeOf(err) == CodeResource }

// IsUnsupported reports whether err is an unsupported operation error.
func IsUnsupported(err error) bool { return CodeOf(err) == CodeUnsupported }
