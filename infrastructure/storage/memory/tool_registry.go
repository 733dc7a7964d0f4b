// Package memory provides in-memory storage implementations.
package memory

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/felixgeelhaar/react-agent/domain/tool"
)

// ToolRegistry is the in-memory tool.Registry shared by concurrent runs.
// Tools are kept sorted by name because the oracle catalogue lists them on
// every iteration.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools []tool.Tool
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{}
}

func (r *ToolRegistry) search(name string) (int, bool) {
	return slices.BinarySearchFunc(r.tools, name, func(t tool.Tool, name string) int {
		return strings.Compare(t.Name(), name)
	})
}

// Register adds t. A second tool with the same name fails with
// tool.ErrDuplicateTool.
func (r *ToolRegistry) Register(t tool.Tool) error {
	if t == nil || t.Name() == "" {
		return tool.ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i, found := r.search(t.Name())
	if found {
		return fmt.Errorf("%w: %s", tool.ErrDuplicateTool, t.Name())
	}
	r.tools = slices.Insert(r.tools, i, t)
	return nil
}

// Get returns the named tool.
func (r *ToolRegistry) Get(name string) (tool.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i, ok := r.search(name); ok {
		return r.tools[i], true
	}
	return nil, false
}

// List returns the tools in name order.
func (r *ToolRegistry) List() []tool.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.tools)
}

// Names returns the tool names in order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name()
	}
	return names
}

// Has reports whether the named tool is registered.
func (r *ToolRegistry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Unregister removes the named tool.
func (r *ToolRegistry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, found := r.search(name)
	if !found {
		return fmt.Errorf("%w: %s", tool.ErrToolNotFound, name)
	}
	r.tools = slices.Delete(r.tools, i, i+1)
	return nil
}

// Len returns the number of registered tools.
func (r *ToolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

var _ tool.Registry = (*ToolRegistry)(nil)
