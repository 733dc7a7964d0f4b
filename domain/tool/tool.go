// Package tool provides the domain model for the actions the loop dispatches.
package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Tool errors.
var (
	ErrEmptyName        = errors.New("tool name cannot be empty")
	ErrNoHandler        = errors.New("tool has no handler")
	ErrToolNotFound     = errors.New("tool not found")
	ErrDuplicateTool    = errors.New("duplicate tool")
	ErrInvalidInput     = errors.New("invalid tool input")
	ErrExecutionTimeout = errors.New("tool execution timed out")
	ErrInvalidSchema    = errors.New("invalid schema")
)

// Tool is an action the oracle can choose by name. Execute receives the
// decision's arguments as a JSON object.
//
// A returned error is a fault the loop classifies; a Result with
// Succeeded false is an ordinary observation the oracle reasons about.
type Tool interface {
	Name() string
	Description() string
	InputSchema() Schema
	Annotations() Annotations
	Execute(ctx context.Context, input json.RawMessage) (Result, error)
}

// Handler executes a tool.
type Handler func(ctx context.Context, input json.RawMessage) (Result, error)

// Typed adapts fn to a Handler that decodes the arguments into T first.
// Empty input decodes as the zero T. Malformed arguments wrap
// ErrInvalidInput so the dispatcher reports them as invalid arguments.
func Typed[T any](fn func(ctx context.Context, in T) (Result, error)) Handler {
	return func(ctx context.Context, input json.RawMessage) (Result, error) {
		var in T
		if len(bytes.TrimSpace(input)) > 0 {
			if err := json.Unmarshal(input, &in); err != nil {
				return Result{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
			}
		}
		return fn(ctx, in)
	}
}

// Definition is the Tool produced by Builder.
type Definition struct {
	name        string
	description string
	inputSchema Schema
	annotations Annotations
	handler     Handler
}

func (d *Definition) Name() string             { return d.name }
func (d *Definition) Description() string      { return d.description }
func (d *Definition) InputSchema() Schema      { return d.inputSchema }
func (d *Definition) Annotations() Annotations { return d.annotations }

// Execute runs the handler.
func (d *Definition) Execute(ctx context.Context, input json.RawMessage) (Result, error) {
	if d.handler == nil {
		return Result{}, ErrNoHandler
	}
	return d.handler(ctx, input)
}

// Builder assembles a Definition. The first invalid setting is reported
// by Build.
type Builder struct {
	def Definition
	err error
}

// NewBuilder starts a tool that takes no arguments and has no annotations.
func NewBuilder(name string) *Builder {
	return &Builder{def: Definition{name: name, inputSchema: EmptySchema()}}
}

// WithDescription sets the text shown to the oracle in the tool catalogue.
func (b *Builder) WithDescription(desc string) *Builder {
	b.def.description = desc
	return b
}

// WithInputSchema sets the argument schema. It must describe an object.
func (b *Builder) WithInputSchema(schema Schema) *Builder {
	if _, err := schema.parse(); err != nil {
		if b.err == nil {
			b.err = err
		}
		return b
	}
	b.def.inputSchema = schema
	return b
}

// ReadOnly marks the tool free of side effects.
func (b *Builder) ReadOnly() *Builder {
	b.def.annotations.ReadOnly = true
	return b
}

// Idempotent marks repeated calls with the same arguments as equivalent.
func (b *Builder) Idempotent() *Builder {
	b.def.annotations.Idempotent = true
	return b
}

// Cacheable lets the observation cache serve repeated calls.
func (b *Builder) Cacheable() *Builder {
	b.def.annotations.Cacheable = true
	return b
}

// Fallback marks the tool as the neutral no-op.
func (b *Builder) Fallback() *Builder {
	b.def.annotations.Fallback = true
	return b
}

// WithTimeout overrides the per-dispatch timeout for this tool.
func (b *Builder) WithTimeout(d time.Duration) *Builder {
	b.def.annotations.Timeout = d
	return b
}

// WithHandler sets the function Execute runs.
func (b *Builder) WithHandler(handler Handler) *Builder {
	b.def.handler = handler
	return b
}

// Build returns the tool.
func (b *Builder) Build() (Tool, error) {
	switch {
	case b.err != nil:
		return nil, b.err
	case b.def.name == "":
		return nil, ErrEmptyName
	case b.def.handler == nil:
		return nil, ErrNoHandler
	}
	def := b.def
	return &def, nil
}

// MustBuild is Build for tools declared at package level. It panics on error.
func (b *Builder) MustBuild() Tool {
	t, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("tool %q: %v", b.def.name, err))
	}
	return t
}
