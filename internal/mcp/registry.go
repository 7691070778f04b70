// Package mcp implements the tool server: the registry of tools and
// resources, the request dispatcher, the session lifecycle, and the HTTP
// gate. The package speaks the protocol types from internal/protocol and
// stays free of any filesystem or shell specifics, which live behind the
// registered handlers.
package mcp

// file: internal/mcp/registry.go

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/hostbridge/hostbridge/internal/protocol"
)

// ToolHandler executes one tool invocation. Returning an error produces a
// tool result with isError set; it never becomes a protocol-level failure.
type ToolHandler func(ctx context.Context, args json.RawMessage) (*protocol.CallToolResult, error)

// ToolDefinition pairs a tool's advertised description with its handler.
// Definitions are immutable after registration.
type ToolDefinition struct {
	Tool    protocol.Tool
	Handler ToolHandler
}

// ResourceHandler produces the contents of a resource for a concrete URI.
type ResourceHandler func(ctx context.Context, uri string) (*protocol.ReadResourceResult, error)

// ResourceDefinition pairs a resource's advertised URI (possibly a template)
// with its handler. Match decides whether a concrete URI belongs to this
// definition; when nil, only the exact advertised URI matches.
type ResourceDefinition struct {
	Resource protocol.Resource
	Match    func(uri string) bool
	Handler  ResourceHandler
}

// Registry holds the immutable set of tools and resources exposed by one
// server instance. Registration happens once at startup; lookups afterwards
// are concurrent.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]ToolDefinition
	toolOrder []string
	resources []ResourceDefinition
	seeded    atomic.Bool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]ToolDefinition)}
}

// RegisterTool adds a tool. Names are unique within the registry.
func (r *Registry) RegisterTool(def ToolDefinition) error {
	if def.Tool.Name == "" {
		return errors.New("tool name must not be empty")
	}
	if def.Handler == nil {
		return errors.Newf("tool has no handler: %s", def.Tool.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Tool.Name]; exists {
		return errors.Newf("tool is already registered: %s", def.Tool.Name)
	}
	r.tools[def.Tool.Name] = def
	r.toolOrder = append(r.toolOrder, def.Tool.Name)
	return nil
}

// RegisterResource adds a resource.
func (r *Registry) RegisterResource(def ResourceDefinition) error {
	if def.Resource.URI == "" {
		return errors.New("resource URI must not be empty")
	}
	if def.Handler == nil {
		return errors.Newf("resource has no handler: %s", def.Resource.URI)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.resources {
		if existing.Resource.URI == def.Resource.URI {
			return errors.Newf("resource is already registered: %s", def.Resource.URI)
		}
	}
	r.resources = append(r.resources, def)
	return nil
}

// SeedOnce runs seed exactly once per registry, no matter how many call paths
// reach it. A second call is an idempotent no-op, not an error. The guard is
// released again if seeding fails so a transient failure can be retried.
func (r *Registry) SeedOnce(seed func(*Registry) error) error {
	if !r.seeded.CompareAndSwap(false, true) {
		return nil
	}
	if err := seed(r); err != nil {
		r.seeded.Store(false)
		return errors.Wrap(err, "failed to seed registry")
	}
	return nil
}

// Tool looks up a registered tool by name.
func (r *Registry) Tool(name string) (ToolDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[name]
	return def, ok
}

// Tools returns all tool descriptions in registration order.
func (r *Registry) Tools() []protocol.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]protocol.Tool, 0, len(r.toolOrder))
	for _, name := range r.toolOrder {
		out = append(out, r.tools[name].Tool)
	}
	return out
}

// Resources returns all resource descriptions in registration order.
func (r *Registry) Resources() []protocol.Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]protocol.Resource, 0, len(r.resources))
	for _, def := range r.resources {
		out = append(out, def.Resource)
	}
	return out
}

// FindResource resolves a concrete URI to the definition that serves it.
func (r *Registry) FindResource(uri string) (ResourceDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, def := range r.resources {
		if def.Match != nil {
			if def.Match(uri) {
				return def, true
			}
			continue
		}
		if def.Resource.URI == uri {
			return def, true
		}
	}
	return ResourceDefinition{}, false
}
