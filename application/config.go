package application

import (
	"errors"
	"fmt"
	"time"
)

// Errors returned before a run starts.
var (
	// ErrInvalidConfig indicates a run configuration that cannot be used.
	ErrInvalidConfig = errors.New("invalid run configuration")

	// ErrNoFallbackTool indicates the registry lacks the no-op tool.
	ErrNoFallbackTool = errors.New("registry has no fallback tool")

	// ErrNoOracle indicates the engine was built without an oracle.
	ErrNoOracle = errors.New("oracle is required")

	// ErrNoRegistry indicates the engine was built without a tool registry.
	ErrNoRegistry = errors.New("registry is required")
)

// Config holds the per-run limits of the control loop.
// It is passed by value so a running task never observes later changes.
type Config struct {
	// MaxIterations bounds the number of steps. Must be at least 1.
	MaxIterations int

	// OracleTimeout bounds each oracle call. Zero disables the bound.
	OracleTimeout time.Duration

	// ToolTimeout bounds each tool dispatch. Zero disables the bound.
	ToolTimeout time.Duration

	// MaxObservationChars truncates step observations. Zero keeps them whole.
	MaxObservationChars int

	// FallbackAfter is the number of consecutive failures of one tool after
	// which requests for it are redirected to the no-op tool. Zero disables it.
	FallbackAfter int
}

// DefaultConfig returns the default loop limits.
func DefaultConfig() Config {
	return Config{
		MaxIterations:       10,
		OracleTimeout:       60 * time.Second,
		ToolTimeout:         30 * time.Second,
		MaxObservationChars: 2000,
		FallbackAfter:       3,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.MaxIterations < 1:
		return fmt.Errorf("%w: max iterations must be at least 1, got %d", ErrInvalidConfig, c.MaxIterations)
	case c.OracleTimeout < 0:
		return fmt.Errorf("%w: oracle timeout must not be negative", ErrInvalidConfig)
	case c.ToolTimeout < 0:
		return fmt.Errorf("%w: tool timeout must not be negative", ErrInvalidConfig)
	case c.MaxObservationChars < 0:
		return fmt.Errorf("%w: max observation chars must not be negative", ErrInvalidConfig)
	case c.FallbackAfter < 0:
		return fmt.Errorf("%w: fallback threshold must not be negative", ErrInvalidConfig)
	}
	return nil
}
