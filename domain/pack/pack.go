// Package pack groups the agent's tools into installable collections.
package pack

import (
	"fmt"

	"github.com/felixgeelhaar/react-agent/domain/tool"
)

// DefaultVersion is the version New assigns.
const DefaultVersion = "1.0.0"

// Pack is a named set of tools installed together, after the packs it
// depends on.
type Pack struct {
	Name        string
	Description string
	Version     string
	Tools       []tool.Tool

	// Dependencies name packs that must be installed first.
	Dependencies []string

	// Backend names the external service the tools call, such as a search
	// provider. Empty for packs that work offline.
	Backend string
}

// New returns a pack holding tools.
func New(name, description string, tools ...tool.Tool) *Pack {
	return &Pack{
		Name:        name,
		Description: description,
		Version:     DefaultVersion,
		Tools:       tools,
	}
}

// DependsOn appends pack dependencies and returns p.
func (p *Pack) DependsOn(names ...string) *Pack {
	p.Dependencies = append(p.Dependencies, names...)
	return p
}

// BackedBy records the external service behind the tools and returns p.
func (p *Pack) BackedBy(service string) *Pack {
	p.Backend = service
	return p
}

// Validate reports whether p can be registered: it needs a name and
// distinct, non-nil tools.
func (p *Pack) Validate() error {
	if p == nil || p.Name == "" {
		return ErrInvalidPack
	}
	seen := make(map[string]bool, len(p.Tools))
	for i, t := range p.Tools {
		if t == nil {
			return fmt.Errorf("%w: %s tool %d is nil", ErrInvalidPack, p.Name, i)
		}
		if seen[t.Name()] {
			return fmt.Errorf("%w: %s lists %s twice", ErrInvalidPack, p.Name, t.Name())
		}
		seen[t.Name()] = true
	}
	return nil
}

// ToolNames returns the tool names in declaration order.
func (p *Pack) ToolNames() []string {
	names := make([]string, len(p.Tools))
	for i, t := range p.Tools {
		names[i] = t.Name()
	}
	return names
}

// Tool returns the named tool.
func (p *Pack) Tool(name string) (tool.Tool, bool) {
	for _, t := range p.Tools {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// Offline reports whether every tool is read-only and no external service is
// involved, so the pack is safe to run without network access.
func (p *Pack) Offline() bool {
	if p.Backend != "" {
		return false
	}
	for _, t := range p.Tools {
		if !t.Annotations().ReadOnly {
			return false
		}
	}
	return true
}
