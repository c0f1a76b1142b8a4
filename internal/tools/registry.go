// ABOUTME: Thread-safe registry for the analysis tools exposed over MCP.
// ABOUTME: Manages tool registration, listing, and dispatch by name.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrToolNotFound indicates the named tool is not registered.
var ErrToolNotFound = errors.New("tool not found")

// ErrToolCollision indicates a tool name is already registered.
var ErrToolCollision = errors.New("tool name collision")

// ErrInvalidInput indicates the tool arguments failed validation.
// Wrapped by tool handlers so callers can report it as a client error.
var ErrInvalidInput = errors.New("invalid input")

// Handler executes one tool call. Input is the raw JSON arguments;
// output is the generated report text. Handlers run outside every
// gateway lock and must honor ctx cancellation.
type Handler func(ctx context.Context, input json.RawMessage) (string, error)

// Tool is one registered analysis tool.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     Handler
}

// Registry maintains the set of registered tools.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	names  []string // registration order, for stable listing
	logger *slog.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:  make(map[string]*Tool),
		logger: logger.With("component", "tools"),
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool *Tool) error {
	if tool.Name == "" {
		return errors.New("tool name is required")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool %s has no handler", tool.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolCollision, tool.Name)
	}

	r.tools[tool.Name] = tool
	r.names = append(r.names, tool.Name)
	r.logger.Debug("tool registered", "tool_name", tool.Name)
	return nil
}

// List returns all registered tools in registration order.
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Tool, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.tools[name])
	}
	return out
}

// Get returns the named tool, or nil if not registered.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Dispatch executes the named tool with the given arguments.
// Returns ErrToolNotFound for unregistered names.
func (r *Registry) Dispatch(ctx context.Context, name string, input json.RawMessage) (string, error) {
	tool := r.Get(name)
	if tool == nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return tool.Handler(ctx, input)
}
