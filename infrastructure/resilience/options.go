package resilience

import "time"

// Option adjusts one executor setting. Zero values leave the default in place
// so options can be derived straight from partially filled configuration.
type Option func(*ExecutorConfig)

// WithMaxConcurrent bounds tool calls in flight across all runs.
func WithMaxConcurrent(n int) Option {
	return func(c *ExecutorConfig) {
		if n > 0 {
			c.MaxConcurrent = n
		}
	}
}

// WithBreaker sets how many consecutive faults open a tool's breaker and how
// long it stays open.
func WithBreaker(threshold int, open time.Duration) Option {
	return func(c *ExecutorConfig) {
		if threshold > 0 {
			c.CircuitBreakerThreshold = threshold
		}
		if open > 0 {
			c.CircuitBreakerTimeout = open
		}
	}
}

// WithRetryAttempts sets the attempt budget for read-only and idempotent tools.
func WithRetryAttempts(n int) Option {
	return func(c *ExecutorConfig) {
		if n > 0 {
			c.RetryMaxAttempts = n
		}
	}
}

// WithRetryDelay sets the first backoff delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *ExecutorConfig) {
		if d > 0 {
			c.RetryInitialDelay = d
		}
	}
}

// WithTimeout bounds calls to tools that declare no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *ExecutorConfig) {
		if d > 0 {
			c.DefaultTimeout = d
		}
	}
}

// NewExecutorWithOptions applies opts over DefaultExecutorConfig.
func NewExecutorWithOptions(opts ...Option) *Executor {
	config := DefaultExecutorConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return NewExecutor(config)
}
