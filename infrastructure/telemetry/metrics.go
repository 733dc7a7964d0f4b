// Package telemetry exposes run and tool metrics to Prometheus.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/felixgeelhaar/react-agent/domain/agent"
)

const namespace = "react_agent"

// Metrics holds the Prometheus collectors of the agent.
// It observes runs and records tool calls made through the middleware chain.
type Metrics struct {
	gatherer     prometheus.Gatherer
	runs         *prometheus.CounterVec
	iterations   prometheus.Histogram
	runDuration  prometheus.Histogram
	steps        *prometheus.CounterVec
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	return NewMetricsWith(reg, reg)
}

// NewMetricsWith registers the collectors on reg and serves them from gatherer.
// Collectors already registered under the same name are reused.
func NewMetricsWith(reg prometheus.Registerer, gatherer prometheus.Gatherer) (*Metrics, error) {
	m := &Metrics{
		gatherer: gatherer,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed runs by terminal status.",
		}, []string{"status"}),
		iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "iterations",
			Help:      "Iterations used per run.",
			Buckets:   prometheus.LinearBuckets(1, 1, 15),
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of runs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Recorded steps by action and outcome.",
		}, []string{"action", "succeeded"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool executions by tool and outcome.",
		}, []string{"tool", "outcome"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Duration of tool executions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
	}

	if err := register(reg, &m.runs); err != nil {
		return nil, err
	}
	if err := register(reg, &m.iterations); err != nil {
		return nil, err
	}
	if err := register(reg, &m.runDuration); err != nil {
		return nil, err
	}
	if err := register(reg, &m.steps); err != nil {
		return nil, err
	}
	if err := register(reg, &m.toolCalls); err != nil {
		return nil, err
	}
	if err := register(reg, &m.toolDuration); err != nil {
		return nil, err
	}
	return m, nil
}

// register registers *c, swapping in the existing collector on a duplicate.
func register[C prometheus.Collector](reg prometheus.Registerer, c *C) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			*c = existing
			return nil
		}
	}
	return err
}

// OnStep counts a recorded step.
func (m *Metrics) OnStep(_ context.Context, _ string, step agent.Step) {
	succeeded := "false"
	if step.Succeeded {
		succeeded = "true"
	}
	m.steps.WithLabelValues(step.Action, succeeded).Inc()
}

// OnComplete records the outcome of a run.
func (m *Metrics) OnComplete(_ context.Context, result agent.Result) {
	m.runs.WithLabelValues(result.Status.String()).Inc()
	m.iterations.Observe(float64(result.IterationCount))
	m.runDuration.Observe(result.ElapsedTime.Seconds())
}

// RecordToolCall records one tool execution.
func (m *Metrics) RecordToolCall(_ context.Context, toolName, outcome string, d time.Duration) {
	m.toolCalls.WithLabelValues(toolName, outcome).Inc()
	m.toolDuration.WithLabelValues(toolName).Observe(d.Seconds())
}

// Handler serves the collected metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Serve exposes Handler on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
