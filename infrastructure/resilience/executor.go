// Package resilience provides resilient tool execution using fortify.
package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/react-agent/domain/tool"
)

// Executor runs tools behind a bulkhead, a timeout, a per-tool circuit
// breaker and, for read-only or idempotent tools, a retry policy.
type Executor struct {
	config   ExecutorConfig
	bulkhead bulkhead.Bulkhead[tool.Result]
	retry    retry.Retry[tool.Result]

	mu       sync.RWMutex
	breakers map[string]circuitbreaker.CircuitBreaker[tool.Result]
}

// ExecutorConfig configures the resilient executor.
type ExecutorConfig struct {
	// MaxConcurrent limits concurrent tool executions across runs.
	MaxConcurrent int

	// CircuitBreakerThreshold is the number of consecutive faults before a tool's breaker opens.
	CircuitBreakerThreshold int

	// CircuitBreakerTimeout is how long a breaker stays open.
	CircuitBreakerTimeout time.Duration

	// RetryMaxAttempts is the maximum number of attempts for retryable tools.
	RetryMaxAttempts int

	// RetryInitialDelay is the initial delay between retries.
	RetryInitialDelay time.Duration

	// RetryBackoffMultiplier is the exponential backoff multiplier.
	RetryBackoffMultiplier float64

	// DefaultTimeout bounds a call when the tool declares no timeout of its own.
	DefaultTimeout time.Duration
}

// DefaultExecutorConfig returns a configuration with sensible defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxConcurrent:           10,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
		RetryMaxAttempts:        2,
		RetryInitialDelay:       200 * time.Millisecond,
		RetryBackoffMultiplier:  2.0,
		DefaultTimeout:          30 * time.Second,
	}
}

// NewExecutor creates a new resilient executor.
func NewExecutor(config ExecutorConfig) *Executor {
	defaults := DefaultExecutorConfig()
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = defaults.MaxConcurrent
	}
	if config.CircuitBreakerThreshold <= 0 {
		config.CircuitBreakerThreshold = defaults.CircuitBreakerThreshold
	}
	if config.CircuitBreakerTimeout <= 0 {
		config.CircuitBreakerTimeout = defaults.CircuitBreakerTimeout
	}
	if config.RetryMaxAttempts <= 0 {
		config.RetryMaxAttempts = 1
	}
	if config.RetryBackoffMultiplier <= 0 {
		config.RetryBackoffMultiplier = defaults.RetryBackoffMultiplier
	}

	return &Executor{
		config: config,
		bulkhead: bulkhead.New[tool.Result](bulkhead.Config{
			MaxConcurrent: config.MaxConcurrent,
		}),
		retry: retry.New[tool.Result](retry.Config{
			MaxAttempts:   config.RetryMaxAttempts,
			InitialDelay:  config.RetryInitialDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    config.RetryBackoffMultiplier,
		}),
		breakers: make(map[string]circuitbreaker.CircuitBreaker[tool.Result]),
	}
}

// NewDefaultExecutor creates an executor with default configuration.
func NewDefaultExecutor() *Executor {
	return NewExecutor(DefaultExecutorConfig())
}

func (e *Executor) breaker(name string) circuitbreaker.CircuitBreaker[tool.Result] {
	e.mu.RLock()
	cb, ok := e.breakers[name]
	e.mu.RUnlock()
	if ok {
		return cb
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if cb, ok = e.breakers[name]; ok {
		return cb
	}
	threshold := uint32(e.config.CircuitBreakerThreshold) // #nosec G115 -- positive, checked in NewExecutor
	cb = circuitbreaker.New[tool.Result](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    e.config.CircuitBreakerTimeout,
		Timeout:     e.config.CircuitBreakerTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})
	e.breakers[name] = cb
	return cb
}

// TimeoutFor returns the deadline Execute applies to t. Zero means none.
func (e *Executor) TimeoutFor(t tool.Tool) time.Duration {
	if d := t.Annotations().Timeout; d > 0 {
		return d
	}
	return e.config.DefaultTimeout
}

// Execute runs a tool with resilience patterns applied.
// Composition order: Bulkhead -> Timeout -> Circuit Breaker -> Retry (read-only or idempotent only).
// Only Go errors count as faults; a result with Succeeded=false passes through untouched.
func (e *Executor) Execute(ctx context.Context, t tool.Tool, input json.RawMessage) (tool.Result, error) {
	start := time.Now()
	cb := e.breaker(t.Name())

	result, err := e.bulkhead.Execute(ctx, func(ctx context.Context) (tool.Result, error) {
		if d := e.TimeoutFor(t); d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}

		return cb.Execute(ctx, func(ctx context.Context) (tool.Result, error) {
			if t.Annotations().CanRetry() && e.config.RetryMaxAttempts > 1 {
				return e.retry.Do(ctx, func(ctx context.Context) (tool.Result, error) {
					return safeExecute(ctx, t, input)
				})
			}
			return safeExecute(ctx, t, input)
		})
	})

	if err == nil && result.Duration == 0 {
		result.Duration = time.Since(start)
	}
	return result, err
}

// ErrToolPanic indicates a tool panicked during execution.
var ErrToolPanic = errors.New("tool panicked")

// safeExecute turns a panicking tool into an error.
func safeExecute(ctx context.Context, t tool.Tool, input json.RawMessage) (result tool.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrToolPanic, t.Name(), r)
		}
	}()
	return t.Execute(ctx, input)
}

// CircuitBreakerState returns the state of the named tool's breaker.
// Tools that never ran report a closed breaker.
func (e *Executor) CircuitBreakerState(toolName string) circuitbreaker.State {
	return e.breaker(toolName).State()
}

// Config returns the effective configuration.
func (e *Executor) Config() ExecutorConfig {
	return e.config
}
