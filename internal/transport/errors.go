// Package transport defines the message-framing abstraction over a live socket
// connection between hostbridge and its backend.
// This file defines the structured error types used within the transport layer.
package transport

// file: internal/transport/errors.go

import (
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrorCode defines specific numeric codes for transport-layer errors.
type ErrorCode int

// Defined error codes for the transport layer.
const (
	// ErrGeneric represents a general or unspecified transport error.
	ErrGeneric ErrorCode = iota + 1000
	// ErrNotOpen indicates an operation was attempted before the socket was open.
	ErrNotOpen
	// ErrTransportClosed indicates an operation was attempted on a closed transport.
	ErrTransportClosed
	// ErrMessageTooLarge signifies a message exceeded MaxMessageSize.
	ErrMessageTooLarge
	// ErrParseFailed indicates inbound text could not be parsed as a message.
	ErrParseFailed
)

// ErrorType categorizes transport errors for higher-level handling.
type ErrorType int

// Defined error types for transport errors.
const (
	// ErrorTypeGeneric represents a general or unspecified transport error.
	ErrorTypeGeneric ErrorType = iota
	// ErrorTypeNotOpen indicates the socket was not open.
	ErrorTypeNotOpen
	// ErrorTypeClosed indicates the transport was already closed.
	ErrorTypeClosed
	// ErrorTypeParse indicates a message parsing error.
	ErrorTypeParse
	// ErrorTypeMessageSize indicates an error due to excessive message size.
	ErrorTypeMessageSize
)

// Error represents a transport-level error with structured details.
type Error struct {
	Type    ErrorType
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the standard Go error interface.
func (e *Error) Error() string {
	base := fmt.Sprintf("TransportError [%d] %s", e.Code, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches transport errors by Type and Code for use with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithContext adds a key-value pair to the error context and returns the
// modified error pointer for chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// NewError creates a basic transport error with a generic type. The cause is
// wrapped to preserve stack trace information.
func NewError(code ErrorCode, message string, cause error) *Error {
	var wrapped error
	if cause != nil {
		wrapped = errors.WithStack(cause)
	}
	return &Error{
		Type:    ErrorTypeGeneric,
		Code:    code,
		Message: message,
		Cause:   wrapped,
		Context: map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}
}

// NewNotOpenError creates an error for operations attempted before the socket
// is open.
func NewNotOpenError(operation string) *Error {
	err := NewError(ErrNotOpen, fmt.Sprintf("cannot %s: socket is not open", operation), nil)
	err.Type = ErrorTypeNotOpen
	return err.WithContext("operation", operation)
}

// NewClosedError creates an error for operations attempted on a closed transport.
func NewClosedError(operation string) *Error {
	err := NewError(ErrTransportClosed, fmt.Sprintf("cannot perform %s on closed transport", operation), nil)
	err.Type = ErrorTypeClosed
	return err.WithContext("operation", operation)
}

// NewParseError creates an error for inbound text that failed message parsing.
// It records a preview of the offending bytes.
func NewParseError(message []byte, cause error) *Error {
	preview := message
	if len(preview) > 100 {
		preview = preview[:100]
	}
	err := NewError(ErrParseFailed, "failed to parse inbound message", cause)
	err.Type = ErrorTypeParse
	err = err.WithContext("messagePreview", string(preview))
	return err.WithContext("messageLength", len(message))
}

// NewMessageSizeError creates an error for messages exceeding MaxMessageSize.
func NewMessageSizeError(size, maxSize int) *Error {
	err := NewError(
		ErrMessageTooLarge,
		fmt.Sprintf("message size %d exceeds maximum allowed size %d", size, maxSize),
		nil,
	)
	err.Type = ErrorTypeMessageSize
	err = err.WithContext("size", size)
	return err.WithContext("maxSize", maxSize)
}

// IsClosedError checks whether err (or its cause chain) signifies a closed
// transport condition.
func IsClosedError(err error) bool {
	var transportErr *Error
	if errors.As(err, &transportErr) {
		return transportErr.Type == ErrorTypeClosed
	}
	return errors.Is(err, io.EOF)
}
