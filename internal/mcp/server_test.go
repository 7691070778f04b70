// file: internal/mcp/server_test.go
package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostbridge/hostbridge/internal/logging"
	"github.com/hostbridge/hostbridge/internal/protocol"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.RegisterTool(echoTool("echo")), "Registration should succeed.")
	s, err := NewServer("hostbridge-test", "0.0.1", r, logging.GetNoopLogger())
	require.NoError(t, err, "Server construction should succeed.")
	return s
}

func request(t *testing.T, id, method string, params any) *protocol.Message {
	t.Helper()
	msg, err := protocol.NewRequest(json.RawMessage(id), method, params)
	require.NoError(t, err, "Building the request should succeed.")
	return msg
}

func notification(t *testing.T, method string) *protocol.Message {
	t.Helper()
	msg, err := protocol.NewNotification(method, nil)
	require.NoError(t, err, "Building the notification should succeed.")
	return msg
}

func initialize(t *testing.T, s *Server) {
	t.Helper()
	response := s.HandleMessage(context.Background(), request(t, `1`, "initialize", protocol.InitializeParams{
		ProtocolVersion: protocol.ProtocolVersion,
		ClientInfo:      protocol.Implementation{Name: "test-client", Version: "0.0.1"},
	}))
	require.NotNil(t, response, "Initialize should be answered.")
	require.Nil(t, response.Error, "Initialize should succeed.")
	require.Nil(t, s.HandleMessage(context.Background(), notification(t, "notifications/initialized")),
		"The initialized notification should not be answered.")
}

func TestServer_Initialize_Succeeds(t *testing.T) {
	s := newTestServer(t)

	response := s.HandleMessage(context.Background(), request(t, `1`, "initialize", protocol.InitializeParams{
		ProtocolVersion: protocol.ProtocolVersion,
	}))
	require.NotNil(t, response, "Initialize should be answered.")
	require.Nil(t, response.Error, "Initialize should succeed.")

	var result protocol.InitializeResult
	require.NoError(t, json.Unmarshal(response.Result, &result), "The result should decode.")
	assert.Equal(t, protocol.ProtocolVersion, result.ProtocolVersion,
		"The server should advertise its protocol version.")
	assert.Equal(t, "hostbridge-test", result.ServerInfo.Name,
		"The server should advertise its name.")
	assert.NotNil(t, result.Capabilities.Tools, "The server should advertise tool support.")
	assert.Equal(t, StateInitializing, s.State(),
		"After the initialize response the session awaits the initialized notification.")
}

func TestServer_RequestBeforeInitialize_Fails(t *testing.T) {
	s := newTestServer(t)

	response := s.HandleMessage(context.Background(), request(t, `1`, "tools/list", nil))
	require.NotNil(t, response, "The request should be answered.")
	require.NotNil(t, response.Error, "Requests before initialize should fail.")
	assert.Equal(t, protocol.CodeRequestSequence, response.Error.Code,
		"The failure should use the request-sequence code.")
	assert.JSONEq(t, `1`, string(response.ID), "The failure should preserve the request id.")
}

func TestServer_DoubleInitialize_Fails(t *testing.T) {
	s := newTestServer(t)
	initialize(t, s)

	response := s.HandleMessage(context.Background(), request(t, `2`, "initialize", nil))
	require.NotNil(t, response.Error, "A second initialize should be rejected.")
	assert.Equal(t, protocol.CodeRequestSequence, response.Error.Code,
		"The rejection should use the request-sequence code.")
}

func TestServer_ListTools_Succeeds(t *testing.T) {
	s := newTestServer(t)
	initialize(t, s)

	response := s.HandleMessage(context.Background(), request(t, `2`, "tools/list", nil))
	require.Nil(t, response.Error, "tools/list should succeed after initialize.")

	var result protocol.ListToolsResult
	require.NoError(t, json.Unmarshal(response.Result, &result), "The result should decode.")
	require.Len(t, result.Tools, 1, "The registered tool should be listed.")
	assert.Equal(t, "echo", result.Tools[0].Name, "The listing should carry the tool name.")
}

func TestServer_CallTool_Succeeds(t *testing.T) {
	s := newTestServer(t)
	initialize(t, s)

	response := s.HandleMessage(context.Background(), request(t, `3`, "tools/call", protocol.CallToolParams{
		Name:      "echo",
		Arguments: json.RawMessage(`{"k":"v"}`),
	}))
	require.Nil(t, response.Error, "tools/call should succeed.")

	var result protocol.CallToolResult
	require.NoError(t, json.Unmarshal(response.Result, &result), "The result should decode.")
	assert.False(t, result.IsError, "The echo call should succeed.")
}

func TestServer_UnknownMethod_Fails(t *testing.T) {
	s := newTestServer(t)
	initialize(t, s)

	response := s.HandleMessage(context.Background(), request(t, `"abc"`, "no/such/method", nil))
	require.NotNil(t, response.Error, "Unknown methods should fail.")
	assert.Equal(t, protocol.CodeMethodNotFound, response.Error.Code,
		"Unknown methods should use the method-not-found code.")
	assert.JSONEq(t, `"abc"`, string(response.ID), "The failure should preserve the request id.")
}

func TestServer_Ping_WorksBeforeInitialize(t *testing.T) {
	s := newTestServer(t)

	response := s.HandleMessage(context.Background(), request(t, `1`, "ping", nil))
	require.NotNil(t, response, "Ping should be answered.")
	assert.Nil(t, response.Error, "Ping should succeed in any state.")
}

func TestServer_Shutdown_MovesToShutdownState(t *testing.T) {
	s := newTestServer(t)
	initialize(t, s)

	response := s.HandleMessage(context.Background(), request(t, `9`, "shutdown", nil))
	require.Nil(t, response.Error, "Shutdown should succeed.")
	assert.Equal(t, StateShutdown, s.State(), "Shutdown should move the lifecycle to its final state.")
}
