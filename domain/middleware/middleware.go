// Package middleware composes cross-cutting behavior around tool execution.
package middleware

import (
	"context"
	"encoding/json"

	"github.com/felixgeelhaar/react-agent/domain/tool"
)

// ExecutionContext is what every layer sees of one tool dispatch.
type ExecutionContext struct {
	RunID string
	// Iteration is the index of the step the call will produce.
	Iteration int
	Tool      tool.Tool
	// Input is the JSON object of arguments chosen by the oracle.
	Input     json.RawMessage
	Reasoning string
}

type Handler func(ctx context.Context, execCtx *ExecutionContext) (tool.Result, error)

// Middleware wraps next. It may skip next entirely, as the cache does on a
// hit, or rewrite the result on the way out.
type Middleware func(next Handler) Handler

// Chain nests middlewares so the first one listed runs outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(h Handler) Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			h = middlewares[i](h)
		}
		return h
	}
}

func Noop() Middleware {
	return func(next Handler) Handler { return next }
}

type layer struct {
	name string
	mw   Middleware
}

// Registry is an immutable, named middleware stack. Use returns a new
// registry, so a base stack can be extended per run without copying.
type Registry struct {
	layers []layer
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Use returns a registry with m appended as the innermost layer.
func (r *Registry) Use(name string, m Middleware) *Registry {
	layers := make([]layer, len(r.layers), len(r.layers)+1)
	copy(layers, r.layers)
	return &Registry{layers: append(layers, layer{name: name, mw: m})}
}

// Chain composes the stack in registration order.
func (r *Registry) Chain() Middleware {
	mws := make([]Middleware, len(r.layers))
	for i, l := range r.layers {
		mws[i] = l.mw
	}
	return Chain(mws...)
}

// Names lists layers outermost first.
func (r *Registry) Names() []string {
	names := make([]string, len(r.layers))
	for i, l := range r.layers {
		names[i] = l.name
	}
	return names
}

func (r *Registry) Len() int {
	return len(r.layers)
}
