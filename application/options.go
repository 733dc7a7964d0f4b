package application

import (
	"time"

	"github.com/felixgeelhaar/react-agent/domain/middleware"
	"github.com/felixgeelhaar/react-agent/domain/oracle"
	"github.com/felixgeelhaar/react-agent/domain/telemetry"
	"github.com/felixgeelhaar/react-agent/domain/tool"
	"github.com/felixgeelhaar/react-agent/infrastructure/resilience"
)

// Option configures the engine.
type Option func(*EngineConfig)

// WithRegistry sets the tool registry.
func WithRegistry(r tool.Registry) Option {
	return func(c *EngineConfig) {
		c.Registry = r
	}
}

// WithOracle sets the reasoning oracle.
func WithOracle(o oracle.Oracle) Option {
	return func(c *EngineConfig) {
		c.Oracle = o
	}
}

// WithRefiner sets the collaborator that rewrites finished answers.
func WithRefiner(r oracle.Refiner) Option {
	return func(c *EngineConfig) {
		c.Refiner = r
	}
}

// WithExecutor sets the resilient executor.
func WithExecutor(e *resilience.Executor) Option {
	return func(c *EngineConfig) {
		c.Executor = e
	}
}

// WithMiddleware sets a custom middleware registry.
// If not set, the engine logs each tool execution.
func WithMiddleware(m *middleware.Registry) Option {
	return func(c *EngineConfig) {
		c.Middleware = m
	}
}

// WithClassifier sets the fault classifier.
func WithClassifier(fc FaultClassifier) Option {
	return func(c *EngineConfig) {
		c.Classifier = fc
	}
}

// WithTracer sets the tracer.
func WithTracer(t telemetry.Tracer) Option {
	return func(c *EngineConfig) {
		c.Tracer = t
	}
}

// WithMeter sets the meter.
func WithMeter(m telemetry.Meter) Option {
	return func(c *EngineConfig) {
		c.Meter = m
	}
}

// WithObserver adds a run observer.
func WithObserver(o Observer) Option {
	return func(c *EngineConfig) {
		c.Observers = append(c.Observers, o)
	}
}

// WithConfig sets the default run limits.
func WithConfig(cfg Config) Option {
	return func(c *EngineConfig) {
		c.Config = cfg
	}
}

// WithMaxIterations sets the iteration budget, starting from the defaults
// when no limits were set yet.
func WithMaxIterations(n int) Option {
	return func(c *EngineConfig) {
		if c.Config == (Config{}) {
			c.Config = DefaultConfig()
		}
		c.Config.MaxIterations = n
	}
}

// WithTimeouts sets the oracle and tool timeouts.
func WithTimeouts(oracleTimeout, toolTimeout time.Duration) Option {
	return func(c *EngineConfig) {
		if c.Config == (Config{}) {
			c.Config = DefaultConfig()
		}
		c.Config.OracleTimeout = oracleTimeout
		c.Config.ToolTimeout = toolTimeout
	}
}

// NewEngineWithOptions creates an engine with functional options.
func NewEngineWithOptions(opts ...Option) (*Engine, error) {
	config := EngineConfig{}
	for _, opt := range opts {
		opt(&config)
	}
	return NewEngine(config)
}
