// Package observability provides the OpenTelemetry implementation of the
// tracing and metrics ports used by the control loop.
package observability

import (
	"io"
	"os"
	"time"

	"github.com/felixgeelhaar/react-agent/domain/config"
)

// Config selects which signals the Provider exports.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Tracing        TracingConfig
	// Metrics enables the in-process meter provider read through Collect.
	Metrics bool
}

type TracingConfig struct {
	Enabled  bool
	Exporter ExporterType
	// Endpoint is the OTLP gRPC address, such as "localhost:4317".
	Endpoint string
	Insecure bool
	// SampleRate is the fraction of runs traced, from 0 to 1.
	SampleRate         float64
	BatchTimeout       time.Duration
	MaxExportBatchSize int
	// Writer receives the stdout exporter's output.
	Writer io.Writer
}

type ExporterType string

const (
	ExporterOTLP   ExporterType = "otlp"
	ExporterStdout ExporterType = "stdout"
	ExporterNoop   ExporterType = "noop"
)

// DefaultConfig exports nothing.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "react-agent",
		ServiceVersion: "dev",
		Tracing: TracingConfig{
			Exporter:           ExporterNoop,
			SampleRate:         1,
			BatchTimeout:       5 * time.Second,
			MaxExportBatchSize: 512,
			Writer:             os.Stderr,
		},
	}
}

// FromConfig maps the telemetry section of the agent configuration.
// Metrics are always collected so the CLI can print a summary. OTLP
// connections are plaintext, matching a local collector.
func FromConfig(cfg config.TelemetryConfig, version string) Config {
	c := DefaultConfig()
	c.ServiceVersion = version
	c.Metrics = true
	if cfg.Tracing.ServiceName != "" {
		c.ServiceName = cfg.Tracing.ServiceName
	}
	if !cfg.Tracing.Enabled {
		return c
	}

	c.Tracing.Enabled = true
	c.Tracing.Exporter = ExporterType(cfg.Tracing.Exporter)
	c.Tracing.Endpoint = cfg.Tracing.Endpoint
	c.Tracing.SampleRate = cfg.Tracing.SampleRate
	c.Tracing.Insecure = c.Tracing.Exporter == ExporterOTLP
	return c
}
