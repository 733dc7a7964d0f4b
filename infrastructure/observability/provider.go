package observability

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/felixgeelhaar/react-agent/domain/telemetry"
	"github.com/felixgeelhaar/react-agent/infrastructure/logging"
)

// ErrUnknownExporter indicates an unsupported trace exporter.
var ErrUnknownExporter = errors.New("unknown trace exporter type")

// Provider owns the OpenTelemetry trace and meter providers.
type Provider struct {
	config         Config
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	reader         *sdkmetric.ManualReader
	tracer         telemetry.Tracer
	meter          telemetry.Meter
	shutdownFuncs  []func(context.Context) error
}

// New creates a provider. Disabled signals get no-op implementations.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	p := &Provider{
		config: cfg,
		tracer: telemetry.NoopTracer{},
		meter:  telemetry.NoopMeter{},
	}
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	)

	if cfg.Tracing.Enabled {
		if err := p.setupTracing(ctx, res); err != nil {
			return nil, err
		}
	}
	if cfg.Metrics {
		p.setupMetrics(res)
	}

	logging.Debug().
		Add(logging.Component("observability")).
		Add(logging.Str("exporter", string(cfg.Tracing.Exporter))).
		Add(logging.Str("tracing", fmt.Sprint(cfg.Tracing.Enabled))).
		Msg("provider ready")

	return p, nil
}

type exporterFunc func(context.Context, TracingConfig) (sdktrace.SpanExporter, error)

// exporters builds span exporters by type. A nil entry disables tracing.
var exporters = map[ExporterType]exporterFunc{
	ExporterNoop:   nil,
	ExporterOTLP:   otlpExporter,
	ExporterStdout: stdoutExporter,
}

func otlpExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts,
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			otlptracegrpc.WithInsecure(),
		)
	}
	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}
	return exp, nil
}

func stdoutExporter(_ context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create stdout exporter: %w", err)
	}
	return exp, nil
}

func (p *Provider) setupTracing(ctx context.Context, res *resource.Resource) error {
	build, ok := exporters[p.config.Tracing.Exporter]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownExporter, p.config.Tracing.Exporter)
	}
	if build == nil {
		return nil
	}
	exporter, err := build(ctx, p.config.Tracing)
	if err != nil {
		return err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(p.config.Tracing.BatchTimeout),
			sdktrace.WithMaxExportBatchSize(p.config.Tracing.MaxExportBatchSize),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(p.config.Tracing.SampleRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p.tracerProvider = tp
	p.tracer = NewTracer(tp.Tracer(p.config.ServiceName))
	p.shutdownFuncs = append(p.shutdownFuncs, tp.Shutdown)
	return nil
}

// setupMetrics installs an SDK meter provider read on demand through Collect.
func (p *Provider) setupMetrics(res *resource.Resource) {
	p.reader = sdkmetric.NewManualReader()
	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(p.reader),
	)
	otel.SetMeterProvider(p.meterProvider)

	p.meter = NewMeter(p.meterProvider.Meter(p.config.ServiceName))
	p.shutdownFuncs = append(p.shutdownFuncs, p.meterProvider.Shutdown)
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

// Tracer returns the tracer.
func (p *Provider) Tracer() telemetry.Tracer {
	return p.tracer
}

// Meter returns the meter.
func (p *Provider) Meter() telemetry.Meter {
	return p.meter
}

// Collect returns the metrics recorded so far. It fails when metrics are
// disabled.
func (p *Provider) Collect(ctx context.Context) (metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	if p.reader == nil {
		return rm, errors.New("metrics are disabled")
	}
	err := p.reader.Collect(ctx, &rm)
	return rm, err
}

// Shutdown flushes and stops the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range p.shutdownFuncs {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewNoopProvider creates a provider with no-op tracer and meter.
func NewNoopProvider() *Provider {
	return &Provider{
		config: DefaultConfig(),
		tracer: telemetry.NoopTracer{},
		meter:  telemetry.NoopMeter{},
	}
}
