package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Registry maps schema names to compiled validators. It is shared
// across sessions and safe for concurrent lookups.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*jsonschema.Schema)}
}

// Register compiles rawSchema (a JSON Schema document) under name.
func (r *Registry) Register(name, rawSchema string) error {
	var doc any
	if err := json.Unmarshal([]byte(rawSchema), &doc); err != nil {
		return fmt.Errorf("schema %s is not valid JSON: %w", name, err)
	}

	c := jsonschema.NewCompiler()
	resource := name + ".json"
	if err := c.AddResource(resource, doc); err != nil {
		return fmt.Errorf("add schema resource %s: %w", name, err)
	}
	compiled, err := c.Compile(resource)
	if err != nil {
		return fmt.Errorf("compile schema %s: %w", name, err)
	}

	r.mu.Lock()
	r.schemas[name] = compiled
	r.mu.Unlock()
	return nil
}

// Lookup returns the compiled schema for name.
func (r *Registry) Lookup(name string) (*jsonschema.Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	return s, ok
}

// Names lists the registered schema names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for n := range r.schemas {
		names = append(names, n)
	}
	return names
}

// NewBuiltinRegistry returns a registry preloaded with the gateway's
// built-in schemas: the terminal AssistantReply plus the demonstration
// Action and Observation shapes.
func NewBuiltinRegistry() (*Registry, error) {
	r := NewRegistry()
	for name, raw := range builtinSchemas {
		if err := r.Register(name, raw); err != nil {
			return nil, err
		}
	}
	return r, nil
}
