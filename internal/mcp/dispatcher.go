// file: internal/mcp/dispatcher.go
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/hostbridge/hostbridge/internal/logging"
	"github.com/hostbridge/hostbridge/internal/mcperrors"
	"github.com/hostbridge/hostbridge/internal/protocol"
)

// Dispatcher routes tools/call requests to registered handlers. It owns the
// two containment guarantees of the dispatch boundary: arguments are validated
// against the tool's schema before the handler runs, and no handler failure,
// including a panic, ever escapes as a process crash. Handler failures become
// results with isError set; only failures of the protocol machinery itself
// become top-level error responses.
type Dispatcher struct {
	registry *Registry
	logger   logging.Logger

	mu      sync.Mutex
	schemas map[string]*jsonschema.Schema
}

// NewDispatcher creates a Dispatcher over registry.
func NewDispatcher(registry *Registry, logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &Dispatcher{
		registry: registry,
		logger:   logger.WithField("component", "dispatcher"),
		schemas:  make(map[string]*jsonschema.Schema),
	}
}

// schemaFor compiles and caches the input schema of the named tool. A tool
// without a schema validates everything.
func (d *Dispatcher) schemaFor(name string, raw json.RawMessage) (*jsonschema.Schema, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if schema, ok := d.schemas[name]; ok {
		return schema, nil
	}

	compiler := jsonschema.NewCompiler()
	resource := name + ".schema.json"
	if err := compiler.AddResource(resource, strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	schema, err := compiler.Compile(resource)
	if err != nil {
		return nil, err
	}
	d.schemas[name] = schema
	return schema, nil
}

// validateArgs checks args against the tool's input schema. The returned
// message is suitable for an invalid-params response.
func (d *Dispatcher) validateArgs(def ToolDefinition, args json.RawMessage) error {
	schema, err := d.schemaFor(def.Tool.Name, def.Tool.InputSchema)
	if err != nil {
		d.logger.Error("Failed to compile tool schema.", "tool", def.Tool.Name, "error", err)
		// A broken schema must not block the tool.
		return nil
	}
	if schema == nil {
		return nil
	}

	var decoded any
	if len(args) == 0 {
		decoded = map[string]any{}
	} else if err := json.Unmarshal(args, &decoded); err != nil {
		return err
	}
	return schema.Validate(decoded)
}

// CallTool executes the tools/call request in msg and always produces exactly
// one response carrying msg's id.
func (d *Dispatcher) CallTool(ctx context.Context, msg *protocol.Message) *protocol.Message {
	var params protocol.CallToolParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return protocol.NewErrorResponse(msg.ID, protocol.CodeInvalidParams, "invalid tool call parameters", err.Error())
	}

	def, ok := d.registry.Tool(params.Name)
	if !ok {
		return protocol.NewErrorResponse(msg.ID, protocol.CodeMethodNotFound,
			fmt.Sprintf("tool not found: %s", params.Name), nil)
	}

	if err := d.validateArgs(def, params.Arguments); err != nil {
		d.logger.Debug("Tool arguments failed validation.", "tool", params.Name, "error", err)
		return protocol.NewErrorResponse(msg.ID, protocol.CodeInvalidParams,
			fmt.Sprintf("invalid arguments for tool %s", params.Name), err.Error())
	}

	result := d.invoke(ctx, def, params.Arguments)
	response, err := protocol.NewSuccessResponse(msg.ID, result)
	if err != nil {
		d.logger.Error("Failed to encode tool result.", "tool", params.Name, "error", err)
		return protocol.NewErrorResponse(msg.ID, protocol.CodeInternalError, "failed to encode tool result", nil)
	}
	return response
}

// invoke runs the handler with panic containment. Both returned errors and
// panics downgrade to an isError result so the caller still receives a normal
// response.
func (d *Dispatcher) invoke(ctx context.Context, def ToolDefinition, args json.RawMessage) (result *protocol.CallToolResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Tool handler panicked.", "tool", def.Tool.Name, "panic", r)
			result = protocol.ErrorResult(fmt.Sprintf("tool %s failed: %v", def.Tool.Name, r))
		}
	}()

	result, err := def.Handler(ctx, args)
	if err != nil {
		d.logger.Warn("Tool handler failed.", "tool", def.Tool.Name, "error", err)
		return protocol.ErrorResult(fmt.Sprintf("tool %s failed: %s", def.Tool.Name, err.Error()))
	}
	if result == nil {
		result = protocol.TextResult("")
	}
	return result
}

// ReadResource executes the resources/read request in msg.
func (d *Dispatcher) ReadResource(ctx context.Context, msg *protocol.Message) *protocol.Message {
	var params protocol.ReadResourceParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return protocol.NewErrorResponse(msg.ID, protocol.CodeInvalidParams, "invalid resource parameters", err.Error())
	}

	def, ok := d.registry.FindResource(params.URI)
	if !ok {
		return protocol.NewErrorResponse(msg.ID, protocol.CodeInvalidParams,
			fmt.Sprintf("resource not found: %s", params.URI), nil)
	}

	result, err := def.Handler(ctx, params.URI)
	if err != nil {
		d.logger.Warn("Resource handler failed.", "uri", params.URI, "error", err)
		return protocol.NewErrorResponse(msg.ID, mcperrors.JSONRPCCode(err),
			fmt.Sprintf("failed to read resource: %s", params.URI), err.Error())
	}

	response, err := protocol.NewSuccessResponse(msg.ID, result)
	if err != nil {
		return protocol.NewErrorResponse(msg.ID, protocol.CodeInternalError, "failed to encode resource result", nil)
	}
	return response
}
