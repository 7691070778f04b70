// file: internal/protocol/types_test.go
package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ClassifiesMessages_WhenEnvelopeIsValid(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		isRequest      bool
		isResponse     bool
		isNotification bool
	}{
		{
			name:      "request",
			raw:       `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
			isRequest: true,
		},
		{
			name:       "response with result",
			raw:        `{"jsonrpc":"2.0","id":1,"result":{}}`,
			isResponse: true,
		},
		{
			name:       "response with error",
			raw:        `{"jsonrpc":"2.0","id":"abc","error":{"code":-32601,"message":"method not found"}}`,
			isResponse: true,
		},
		{
			name:           "notification",
			raw:            `{"jsonrpc":"2.0","method":"notifications/initialized"}`,
			isNotification: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := Parse([]byte(tc.raw))
			require.NoError(t, err, "Parse should accept a valid envelope.")
			assert.Equal(t, tc.isRequest, msg.IsRequest(), "IsRequest classification.")
			assert.Equal(t, tc.isResponse, msg.IsResponse(), "IsResponse classification.")
			assert.Equal(t, tc.isNotification, msg.IsNotification(), "IsNotification classification.")
		})
	}
}

func TestParse_Fails_WhenEnvelopeIsInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `{"jsonrpc":`},
		{name: "wrong version", raw: `{"jsonrpc":"1.0","id":1,"method":"x"}`},
		{name: "neither request nor response", raw: `{"jsonrpc":"2.0"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.raw))
			assert.Error(t, err, "Parse should reject an invalid envelope.")
		})
	}
}

func TestNewErrorResponse_PreservesID_WhenIDIsPresent(t *testing.T) {
	id := json.RawMessage(`42`)
	resp := NewErrorResponse(id, CodeMethodNotFound, "method not found", map[string]any{"method": "nope"})

	raw, err := json.Marshal(resp)
	require.NoError(t, err, "Error response should marshal.")

	var decoded Message
	require.NoError(t, json.Unmarshal(raw, &decoded), "Error response should round-trip.")
	assert.Equal(t, `42`, string(decoded.ID), "Response must carry the original request id.")
	require.NotNil(t, decoded.Error, "Response must carry an error object.")
	assert.Equal(t, CodeMethodNotFound, decoded.Error.Code, "Error code should be preserved.")
}

func TestNewErrorResponse_OmitsID_WhenIDIsNil(t *testing.T) {
	resp := NewErrorResponse(nil, CodeMethodNotAllowed, "method not allowed", nil)

	raw, err := json.Marshal(resp)
	require.NoError(t, err, "Error response should marshal.")
	assert.NotContains(t, string(raw), `"id"`, "Method-not-allowed errors carry no id.")
}

func TestErrorResult_SetsIsError_WhenBuilt(t *testing.T) {
	res := ErrorResult("boom")
	assert.True(t, res.IsError, "ErrorResult should set IsError.")
	require.Len(t, res.Content, 1, "ErrorResult should carry one content block.")
	assert.Equal(t, "boom", res.Content[0].Text, "ErrorResult text should be preserved.")
}
