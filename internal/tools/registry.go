// Package tools provides the live tool handler: a registry of named
// functions the resolution loop can invoke when the engine runs outside
// simulated mode.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Func executes one tool call and returns a serialized result.
type Func func(ctx context.Context, args map[string]interface{}) (string, error)

// Registry stores tool functions keyed by function name. It satisfies the
// executor's Handler contract.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		funcs: make(map[string]Func),
	}
}

// Register adds a function under a name.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return fmt.Errorf("tool name is required")
	}
	if fn == nil {
		return fmt.Errorf("tool function is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("tool already registered for %s", name)
	}
	r.funcs[name] = fn
	return nil
}

// MustRegister adds a function or panics.
func (r *Registry) MustRegister(name string, fn Func) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Invoke runs the function registered under name.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	if name == "" {
		return "", fmt.Errorf("tool name is required")
	}
	r.mu.RLock()
	fn := r.funcs[name]
	r.mu.RUnlock()
	if fn == nil {
		return "", fmt.Errorf("no tool registered for %s", name)
	}
	return fn(ctx, args)
}

// NewBuiltin returns a registry preloaded with the stock tools used by
// local runs.
func NewBuiltin() *Registry {
	r := NewRegistry()
	r.MustRegister("echo", func(_ context.Context, args map[string]interface{}) (string, error) {
		encoded, err := json.Marshal(args)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	})
	r.MustRegister("get_weather", func(_ context.Context, args map[string]interface{}) (string, error) {
		city, _ := args["city"].(string)
		if city == "" {
			city = "unknown"
		}
		return fmt.Sprintf(`{"city":%q,"weather":"Sunny","temperature":25}`, city), nil
	})
	return r
}
