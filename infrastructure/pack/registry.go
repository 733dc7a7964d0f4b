// Package pack resolves tool packs and installs them into a tool registry.
package pack

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/felixgeelhaar/react-agent/domain/pack"
	"github.com/felixgeelhaar/react-agent/domain/tool"
)

// Registry holds packs by name. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	packs map[string]*pack.Pack
}

func NewRegistry() *Registry {
	return &Registry{packs: make(map[string]*pack.Pack)}
}

// Register validates p and adds it. Dependencies are checked at install
// time, so packs may be registered in any order.
func (r *Registry) Register(p *pack.Pack) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.packs[p.Name]; dup {
		return fmt.Errorf("%w: %s", pack.ErrPackExists, p.Name)
	}
	r.packs[p.Name] = p
	return nil
}

func (r *Registry) Get(name string) (*pack.Pack, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.packs[name]
	return p, ok
}

// List returns the packs sorted by name.
func (r *Registry) List() []*pack.Pack {
	r.mu.RLock()
	list := make([]*pack.Pack, 0, len(r.packs))
	for _, p := range r.packs {
		list = append(list, p)
	}
	r.mu.RUnlock()

	slices.SortFunc(list, func(a, b *pack.Pack) int { return strings.Compare(a.Name, b.Name) })
	return list
}

func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.packs[name]; !ok {
		return fmt.Errorf("%w: %s", pack.ErrPackNotFound, name)
	}
	delete(r.packs, name)
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.packs)
}

// Plan returns the named packs and everything they depend on, each once,
// with dependencies ahead of their dependents. With no names it plans
// every registered pack.
func (r *Registry) Plan(names ...string) ([]*pack.Pack, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(names) == 0 {
		for name := range r.packs {
			names = append(names, name)
		}
		slices.Sort(names)
	}

	p := planner{packs: r.packs, state: make(map[string]visit)}
	for _, name := range names {
		if err := p.visit(name, ""); err != nil {
			return nil, err
		}
	}
	return p.order, nil
}

type visit int

const (
	unvisited visit = iota
	visiting
	visited
)

type planner struct {
	packs map[string]*pack.Pack
	state map[string]visit
	order []*pack.Pack
}

// visit appends name after its dependencies. from is the dependent pack,
// empty for a root.
func (p *planner) visit(name, from string) error {
	switch p.state[name] {
	case visited:
		return nil
	case visiting:
		return fmt.Errorf("%w: %s -> %s", pack.ErrCircularDependency, from, name)
	}

	pk, ok := p.packs[name]
	if !ok {
		if from != "" {
			return fmt.Errorf("%w: %s needs %s", pack.ErrDependencyNotFound, from, name)
		}
		return fmt.Errorf("%w: %s", pack.ErrPackNotFound, name)
	}

	p.state[name] = visiting
	for _, dep := range pk.Dependencies {
		if err := p.visit(dep, name); err != nil {
			return err
		}
	}
	p.state[name] = visited
	p.order = append(p.order, pk)
	return nil
}

// Install installs name and its dependencies into toolReg.
func (r *Registry) Install(name string, toolReg tool.Registry) error {
	return r.install(toolReg, name)
}

// InstallAll installs every registered pack into toolReg.
func (r *Registry) InstallAll(toolReg tool.Registry) error {
	return r.install(toolReg)
}

func (r *Registry) install(toolReg tool.Registry, names ...string) error {
	order, err := r.Plan(names...)
	if err != nil {
		return err
	}
	for _, p := range order {
		if err := r.InstallPack(p, toolReg); err != nil {
			return fmt.Errorf("install %s: %w", p.Name, err)
		}
	}
	return nil
}

// InstallPack registers the tools of p that toolReg lacks. A tool name
// already present, for example from a shared dependency, is kept as is.
func (r *Registry) InstallPack(p *pack.Pack, toolReg tool.Registry) error {
	if err := p.Validate(); err != nil {
		return err
	}
	for _, t := range p.Tools {
		if toolReg.Has(t.Name()) {
			continue
		}
		if err := toolReg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

var (
	_ pack.Registry  = (*Registry)(nil)
	_ pack.Installer = (*Registry)(nil)
)
