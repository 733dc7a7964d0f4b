package tool

import "time"

// Annotations describe how the loop may treat a tool's calls.
type Annotations struct {
	// ReadOnly tools have no side effects.
	ReadOnly bool `json:"read_only"`

	// Idempotent tools return the same result for the same arguments.
	Idempotent bool `json:"idempotent"`

	// Cacheable tools may be served from the observation cache.
	Cacheable bool `json:"cacheable"`

	// Fallback marks the neutral no-op used when the loop must not act.
	Fallback bool `json:"fallback"`

	// Timeout overrides the engine's per-dispatch timeout. Zero keeps it.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// CanCache reports whether observations may be reused across calls.
func (a Annotations) CanCache() bool {
	return a.Cacheable && (a.ReadOnly || a.Idempotent)
}

// CanRetry reports whether a failed call may be repeated safely.
func (a Annotations) CanRetry() bool {
	return a.Idempotent || a.ReadOnly
}
