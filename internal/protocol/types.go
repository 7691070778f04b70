// Package protocol defines the JSON-RPC 2.0 message model and the MCP wire types
// exchanged between hostbridge and its backend.
// file: internal/protocol/types.go
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
)

// Version is the JSON-RPC version string.
const Version = "2.0"

// ProtocolVersion is the MCP protocol revision this server speaks.
const ProtocolVersion = "2024-11-05"

// Standard JSON-RPC 2.0 error codes, plus the server-defined codes used by hostbridge.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// CodeMethodNotAllowed is returned for unsupported verbs on the HTTP gate.
	CodeMethodNotAllowed = -32000
	// CodeRequestSequence is returned for methods arriving before initialization.
	CodeRequestSequence = -32001
)

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error returns the error message, implementing the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("JSON-RPC error %d: %s", e.Code, e.Message)
}

// Message represents a JSON-RPC message.
// It is the discriminated union of Request, Response, and Notification.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// IsRequest returns true if the message is a request.
func (m *Message) IsRequest() bool {
	return m.Method != "" && m.ID != nil && m.Result == nil && m.Error == nil
}

// IsResponse returns true if the message is a response.
func (m *Message) IsResponse() bool {
	return m.Method == "" && m.ID != nil && (m.Result != nil || m.Error != nil)
}

// IsNotification returns true if the message is a notification.
func (m *Message) IsNotification() bool {
	return m.Method != "" && m.ID == nil && m.Result == nil && m.Error == nil
}

// Parse decodes raw bytes into a Message, verifying the JSON-RPC envelope.
func Parse(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errors.Wrap(err, "failed to parse JSON-RPC message")
	}
	if msg.JSONRPC != Version {
		return nil, errors.Newf("unsupported JSON-RPC version: %q", msg.JSONRPC)
	}
	if msg.Method == "" && msg.ID == nil {
		return nil, errors.New("message is neither a request, response, nor notification")
	}
	return &msg, nil
}

// NewRequest builds a request message. The id must be a marshaled JSON value.
func NewRequest(id json.RawMessage, method string, params any) (*Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return &Message{JSONRPC: Version, ID: id, Method: method, Params: raw}, nil
}

// NewNotification builds a notification message (no id, no response expected).
func NewNotification(method string, params any) (*Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return &Message{JSONRPC: Version, Method: method, Params: raw}, nil
}

// NewSuccessResponse builds a response carrying result for the given request id.
func NewSuccessResponse(id json.RawMessage, result any) (*Message, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal response result")
	}
	return &Message{JSONRPC: Version, ID: id, Result: raw}, nil
}

// NewErrorResponse builds a response carrying a structured failure for the given
// request id. A nil id is permitted only for errors that predate id extraction
// (parse failures, unsupported HTTP verbs).
func NewErrorResponse(id json.RawMessage, code int, message string, data any) *Message {
	var raw json.RawMessage
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			raw = b
		}
	}
	return &Message{
		JSONRPC: Version,
		ID:      id,
		Error:   &Error{Code: code, Message: message, Data: raw},
	}
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal params")
	}
	return raw, nil
}
