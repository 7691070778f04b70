// Package mcperrors defines the domain error taxonomy for hostbridge tools and
// protocol handling. These errors carry more context than standard Go errors and
// drive the mapping of internal failures onto JSON-RPC error responses or
// isError tool results.
package mcperrors

// file: internal/mcperrors/errors.go

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/hostbridge/hostbridge/internal/protocol"
)

// Code categorizes a domain failure.
type Code int

// Domain failure codes. Tool handlers report these through isError results;
// only protocol-level failures surface as top-level JSON-RPC errors.
const (
	// CodeValidation marks bad or missing parameters.
	CodeValidation Code = 1000 + iota
	// CodePrecondition marks calls whose environment is not ready
	// (no workspace open, line range out of bounds).
	CodePrecondition
	// CodeStaleState marks a mutation rejected because the caller's view of the
	// target no longer matches reality (original-code mismatch on replace).
	CodeStaleState
	// CodeNotFound marks a missing file or command target.
	CodeNotFound
	// CodeTimeout marks a shell command that exceeded its deadline.
	CodeTimeout
	// CodeTransport marks socket-level failures (never surfaced to tool callers).
	CodeTransport
	// CodeInternal marks an uncaught handler failure.
	CodeInternal
)

// BaseError is the common base for hostbridge error types. It carries a
// domain code, a human-readable message, an optional cause, and key-value
// context for self-correction by callers.
type BaseError struct {
	Code    Code
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the standard error interface.
func (e *BaseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("hostbridge error (code %d): %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("hostbridge error (code %d): %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *BaseError) Unwrap() error {
	return e.Cause
}

// WithContext adds a key-value pair to the error context and returns the error
// for chaining.
func (e *BaseError) WithContext(key string, value any) *BaseError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func newError(code Code, message string, cause error, ctx map[string]any) *BaseError {
	var wrapped error
	if cause != nil {
		wrapped = errors.WithStack(cause)
	}
	return &BaseError{Code: code, Message: message, Cause: wrapped, Context: ctx}
}

// NewValidationError creates an error describing bad or missing parameters.
func NewValidationError(message string, cause error, ctx map[string]any) *BaseError {
	return newError(CodeValidation, message, cause, ctx)
}

// NewPreconditionError creates an error describing an environment that is not
// ready for the requested call. Context should include expected vs. actual
// ranges so callers can self-correct.
func NewPreconditionError(message string, cause error, ctx map[string]any) *BaseError {
	return newError(CodePrecondition, message, cause, ctx)
}

// NewStaleStateError creates an error describing a mutation rejected because
// the caller's view of the target region is out of date. Context must include
// the expected and actual content.
func NewStaleStateError(message string, cause error, ctx map[string]any) *BaseError {
	return newError(CodeStaleState, message, cause, ctx)
}

// NewNotFoundError creates an error describing a missing file or target.
func NewNotFoundError(message string, cause error, ctx map[string]any) *BaseError {
	return newError(CodeNotFound, message, cause, ctx)
}

// NewTimeoutError creates an error describing a command that hit its deadline.
func NewTimeoutError(message string, cause error, ctx map[string]any) *BaseError {
	return newError(CodeTimeout, message, cause, ctx)
}

// NewTransportError creates an error describing a socket-level failure.
func NewTransportError(message string, cause error) *BaseError {
	return newError(CodeTransport, message, cause, nil)
}

// NewInternalError creates an error describing an uncaught handler failure.
func NewInternalError(message string, cause error) *BaseError {
	return newError(CodeInternal, message, cause, nil)
}

// CodeOf extracts the domain code from err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var base *BaseError
	if errors.As(err, &base) {
		return base.Code
	}
	return CodeInternal
}

// JSONRPCCode maps a domain error onto the JSON-RPC code used when the failure
// must surface as a top-level error response rather than an isError result.
func JSONRPCCode(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return protocol.CodeInvalidParams
	case CodeNotFound:
		return protocol.CodeMethodNotFound
	default:
		return protocol.CodeInternalError
	}
}
