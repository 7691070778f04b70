// file: internal/mcp/server.go
package mcp

import (
	"context"
	"encoding/json"

	"github.com/hostbridge/hostbridge/internal/fsm"
	"github.com/hostbridge/hostbridge/internal/logging"
	"github.com/hostbridge/hostbridge/internal/protocol"
	"github.com/hostbridge/hostbridge/internal/transport"
)

// Session lifecycle states.
const (
	StateUninitialized fsm.State = "uninitialized"
	StateInitializing  fsm.State = "initializing"
	StateInitialized   fsm.State = "initialized"
	StateShutdown      fsm.State = "shutdown"
)

// Session lifecycle events.
const (
	EventInitialize  fsm.Event = "initialize"
	EventInitialized fsm.Event = "initialized"
	EventShutdown    fsm.Event = "shutdown"
)

// sessionTransitions defines the legal lifecycle order: initialize first,
// the initialized notification next, shutdown from anywhere.
func sessionTransitions() []fsm.Transition {
	return []fsm.Transition{
		{From: []fsm.State{StateUninitialized}, To: StateInitializing, Event: EventInitialize},
		{From: []fsm.State{StateInitializing}, To: StateInitialized, Event: EventInitialized},
		{From: []fsm.State{StateUninitialized, StateInitializing, StateInitialized}, To: StateShutdown, Event: EventShutdown},
	}
}

// Server is the protocol tool server. It answers the handshake, serves
// tools/list, tools/call, resources/list, and resources/read, and enforces
// the session lifecycle: every other request before initialize is rejected
// with a request-sequence error. One Server handles one session; the bridge
// constructs a fresh one per connection.
type Server struct {
	name       string
	version    string
	registry   *Registry
	dispatcher *Dispatcher
	lifecycle  *fsm.FSM
	logger     logging.Logger
}

// NewServer creates a Server exposing the given registry.
func NewServer(name, version string, registry *Registry, logger logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	logger = logger.WithField("component", "mcp_server")

	lifecycle, err := fsm.New(StateUninitialized, sessionTransitions(), logger)
	if err != nil {
		return nil, err
	}

	return &Server{
		name:       name,
		version:    version,
		registry:   registry,
		dispatcher: NewDispatcher(registry, logger),
		lifecycle:  lifecycle,
		logger:     logger,
	}, nil
}

// State returns the current lifecycle state.
func (s *Server) State() fsm.State {
	return s.lifecycle.Current()
}

// HandleMessage processes one inbound message and returns the response to
// send, or nil for notifications and for messages that must be ignored.
func (s *Server) HandleMessage(ctx context.Context, msg *protocol.Message) *protocol.Message {
	if msg.IsNotification() {
		s.handleNotification(ctx, msg)
		return nil
	}
	if !msg.IsRequest() {
		// Responses to server-initiated requests are not expected; drop them.
		s.logger.Debug("Ignoring unexpected response message.")
		return nil
	}
	return s.handleRequest(ctx, msg)
}

func (s *Server) handleNotification(ctx context.Context, msg *protocol.Message) {
	switch msg.Method {
	case "notifications/initialized":
		if err := s.lifecycle.Fire(ctx, EventInitialized, nil); err != nil {
			s.logger.Warn("Unexpected initialized notification.", "state", s.State(), "error", err)
		}
	case "exit":
		if err := s.lifecycle.Fire(ctx, EventShutdown, nil); err != nil {
			s.logger.Warn("Unexpected exit notification.", "state", s.State(), "error", err)
		}
	default:
		s.logger.Debug("Ignoring unknown notification.", "method", msg.Method)
	}
}

func (s *Server) handleRequest(ctx context.Context, msg *protocol.Message) *protocol.Message {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(ctx, msg)
	case "ping":
		response, err := protocol.NewSuccessResponse(msg.ID, struct{}{})
		if err != nil {
			return protocol.NewErrorResponse(msg.ID, protocol.CodeInternalError, "failed to encode response", nil)
		}
		return response
	case "shutdown":
		return s.handleShutdown(ctx, msg)
	}

	if s.State() != StateInitialized && s.State() != StateInitializing {
		return protocol.NewErrorResponse(msg.ID, protocol.CodeRequestSequence,
			"server not initialized", map[string]any{"state": string(s.State())})
	}

	switch msg.Method {
	case "tools/list":
		return s.handleListTools(msg)
	case "tools/call":
		return s.dispatcher.CallTool(ctx, msg)
	case "resources/list":
		return s.handleListResources(msg)
	case "resources/read":
		return s.dispatcher.ReadResource(ctx, msg)
	default:
		return protocol.NewErrorResponse(msg.ID, protocol.CodeMethodNotFound,
			"method not found: "+msg.Method, nil)
	}
}

func (s *Server) handleInitialize(ctx context.Context, msg *protocol.Message) *protocol.Message {
	var params protocol.InitializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return protocol.NewErrorResponse(msg.ID, protocol.CodeInvalidParams, "invalid initialize parameters", err.Error())
		}
	}

	if err := s.lifecycle.Fire(ctx, EventInitialize, nil); err != nil {
		return protocol.NewErrorResponse(msg.ID, protocol.CodeRequestSequence,
			"initialize is only valid once, before any other request",
			map[string]any{"state": string(s.State())})
	}

	s.logger.Info("Session initializing.",
		"clientName", params.ClientInfo.Name, "clientVersion", params.ClientInfo.Version,
		"protocolVersion", params.ProtocolVersion)

	result := protocol.InitializeResult{
		ProtocolVersion: protocol.ProtocolVersion,
		ServerInfo:      protocol.Implementation{Name: s.name, Version: s.version},
		Capabilities: protocol.ServerCapabilities{
			Tools:     &protocol.ToolsCapability{},
			Resources: &protocol.ResourcesCapability{},
		},
	}
	response, err := protocol.NewSuccessResponse(msg.ID, result)
	if err != nil {
		return protocol.NewErrorResponse(msg.ID, protocol.CodeInternalError, "failed to encode response", nil)
	}
	return response
}

func (s *Server) handleShutdown(ctx context.Context, msg *protocol.Message) *protocol.Message {
	if err := s.lifecycle.Fire(ctx, EventShutdown, nil); err != nil {
		s.logger.Warn("Shutdown requested in unexpected state.", "state", s.State(), "error", err)
	}
	response, err := protocol.NewSuccessResponse(msg.ID, struct{}{})
	if err != nil {
		return protocol.NewErrorResponse(msg.ID, protocol.CodeInternalError, "failed to encode response", nil)
	}
	return response
}

func (s *Server) handleListTools(msg *protocol.Message) *protocol.Message {
	result := protocol.ListToolsResult{Tools: s.registry.Tools()}
	response, err := protocol.NewSuccessResponse(msg.ID, result)
	if err != nil {
		return protocol.NewErrorResponse(msg.ID, protocol.CodeInternalError, "failed to encode response", nil)
	}
	return response
}

func (s *Server) handleListResources(msg *protocol.Message) *protocol.Message {
	result := protocol.ListResourcesResult{Resources: s.registry.Resources()}
	response, err := protocol.NewSuccessResponse(msg.ID, result)
	if err != nil {
		return protocol.NewErrorResponse(msg.ID, protocol.CodeInternalError, "failed to encode response", nil)
	}
	return response
}

// Attach wires the server to a transport: inbound messages are handled in
// order on a single goroutine and responses are written back. Parse failures
// answer with a parse-error response and leave the connection open.
func (s *Server) Attach(ctx context.Context, t *transport.Transport) {
	t.OnMessage(func(msg *protocol.Message) {
		response := s.HandleMessage(ctx, msg)
		if response == nil {
			return
		}
		if err := t.Send(response); err != nil {
			s.logger.Error("Failed to send response.", "error", err)
		}
	})
	t.OnError(func(err error) {
		s.logger.Warn("Transport delivered an unusable message.", "error", err)
		if sendErr := t.Send(protocol.NewErrorResponse(nil, protocol.CodeParseError, "parse error", nil)); sendErr != nil {
			s.logger.Error("Failed to send parse error response.", "error", sendErr)
		}
	})
}
