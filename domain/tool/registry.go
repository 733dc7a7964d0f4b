package tool

// Registry defines the interface for tool registration and lookup.
// Implementations live in infrastructure and must be safe for concurrent reads.
type Registry interface {
	// Register adds a tool. A second tool with the same name fails with ErrDuplicateTool.
	Register(tool Tool) error

	// Get retrieves a tool by name.
	Get(name string) (Tool, bool)

	// List returns all registered tools sorted by name.
	List() []Tool

	// Names returns all registered tool names sorted.
	Names() []string

	// Has checks if a tool is registered.
	Has(name string) bool

	// Unregister removes a tool from the registry.
	Unregister(name string) error
}

// FallbackName is the name of the mandatory no-op tool.
const FallbackName = "do_nothing"

// HasFallback reports whether the registry can serve the no-op fallback.
func HasFallback(r Registry) bool {
	t, ok := r.Get(FallbackName)
	return ok && t != nil
}
