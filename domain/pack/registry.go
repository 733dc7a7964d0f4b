package pack

import (
	"errors"

	"github.com/felixgeelhaar/react-agent/domain/tool"
)

// Registry errors.
var (
	ErrPackNotFound       = errors.New("pack not found")
	ErrPackExists         = errors.New("pack already registered")
	ErrInvalidPack        = errors.New("invalid pack")
	ErrDependencyNotFound = errors.New("pack dependency not registered")
	ErrCircularDependency = errors.New("circular pack dependency")
)

// Registry holds the tool packs available to the agent loop.
type Registry interface {
	Register(pack *Pack) error
	Get(name string) (*Pack, bool)

	// List returns all registered packs sorted by name.
	List() []*Pack

	Unregister(name string) error

	// Install installs a pack and, first, the packs it depends on.
	Install(name string, toolReg tool.Registry) error
}

// Installer installs packs into a tool registry.
type Installer interface {
	// InstallPack registers the tools of pack that toolReg does not have yet.
	InstallPack(pack *Pack, toolReg tool.Registry) error
}
