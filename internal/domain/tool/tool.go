package tool

import (
	"context"
	"fmt"
	"sync"
)

// Tool is an executor the orchestrator can invoke on a tool.call
// frame. Implementations own their business logic; the gateway only
// supplies parsed arguments and a deadline via ctx.
type Tool interface {
	// Name returns the canonical tool name (e.g. "places.search").
	Name() string
	// Description returns a short human-readable summary.
	Description() string
	// Execute runs the tool. The returned map is serialized verbatim
	// into the tool.result event.
	Execute(ctx context.Context, args map[string]any) (map[string]any, error)
}

// Func adapts a plain function into a Tool.
type Func struct {
	ToolName string
	Desc     string
	Fn       func(ctx context.Context, args map[string]any) (map[string]any, error)
}

func (f *Func) Name() string        { return f.ToolName }
func (f *Func) Description() string { return f.Desc }

func (f *Func) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	return f.Fn(ctx, args)
}

// Registry resolves tool names to executors. Shared across sessions;
// safe for concurrent use.
type Registry interface {
	Register(tool Tool) error
	Get(name string) (Tool, bool)
	Has(name string) bool
	Names() []string
}

// InMemoryRegistry is the process-wide tool registry.
type InMemoryRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewInMemoryRegistry creates an empty registry.
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{tools: make(map[string]Tool)}
}

// Register adds a tool; duplicate names are rejected.
func (r *InMemoryRegistry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = tool
	return nil
}

// Get returns the tool registered under name.
func (r *InMemoryRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, exists := r.tools[name]
	return t, exists
}

// Has reports whether name is registered.
func (r *InMemoryRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.tools[name]
	return exists
}

// Names lists the registered tool names.
func (r *InMemoryRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	return names
}
