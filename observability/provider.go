// Package observability sets up OpenTelemetry tracer and meter providers that
// export delivery spans and metrics to stdout or an OTLP collector.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/fnklabs/monger-go/config"
	"github.com/fnklabs/monger-go/logger"
)

// Supported endpoints and protocols
const (
	EndpointStdout = "stdout"
	ProtocolHTTP   = "http"
	ProtocolGRPC   = "grpc"
)

// Provider is the interface for observability providers.
// It manages the lifecycle of tracing and metrics providers.
type Provider interface {
	// TracerProvider returns the configured trace provider.
	TracerProvider() trace.TracerProvider

	// MeterProvider returns the configured meter provider.
	MeterProvider() metric.MeterProvider

	// Shutdown flushes pending telemetry and releases exporters.
	Shutdown(ctx context.Context) error

	// ForceFlush immediately flushes any pending telemetry data.
	ForceFlush(ctx context.Context) error
}

// Service identifies the process emitting telemetry.
type Service struct {
	Name    string
	Version string
}

// Option configures NewProvider.
type Option func(*settings)

type settings struct {
	log       logger.Logger
	writer    io.Writer
	setGlobal bool
}

// WithLogger logs provider setup to log.
func WithLogger(log logger.Logger) Option {
	return func(s *settings) {
		s.log = log
	}
}

// WithWriter sends stdout exporter output to w.
func WithWriter(w io.Writer) Option {
	return func(s *settings) {
		s.writer = w
	}
}

// WithoutGlobal leaves the global OpenTelemetry providers untouched.
func WithoutGlobal() Option {
	return func(s *settings) {
		s.setGlobal = false
	}
}

// provider implements Provider with OpenTelemetry SDK.
type provider struct {
	config         config.ObservabilityConfig
	service        Service
	settings       settings
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	mu             sync.Mutex
}

// NewProvider creates a provider for cfg. A disabled configuration yields a
// no-op provider. Enabled providers are installed as the global OpenTelemetry
// providers together with the W3C trace context propagator, unless
// WithoutGlobal is given.
func NewProvider(cfg config.ObservabilityConfig, service Service, opts ...Option) (Provider, error) {
	s := settings{log: logger.Nop(), setGlobal: true}
	for _, opt := range opts {
		opt(&s)
	}

	if !cfg.Enabled {
		s.log.Debug().Msg("Observability disabled, using no-op provider")
		return newNoopProvider(), nil
	}
	if cfg.Endpoint != EndpointStdout && cfg.Protocol != ProtocolHTTP && cfg.Protocol != ProtocolGRPC {
		return nil, fmt.Errorf("protocol '%s': %w", cfg.Protocol, ErrInvalidProtocol)
	}

	p := &provider{config: cfg, service: service, settings: s}

	res, err := p.createResource()
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	if err := p.initTraceProvider(res); err != nil {
		return nil, fmt.Errorf("failed to initialize trace provider: %w", err)
	}
	if err := p.initMeterProvider(res); err != nil {
		_ = p.tracerProvider.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}

	if s.setGlobal {
		otel.SetTracerProvider(p.tracerProvider)
		otel.SetMeterProvider(p.meterProvider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	}

	s.log.Info().
		Str("endpoint", cfg.Endpoint).
		Str("protocol", cfg.Protocol).
		Dur("interval", cfg.Interval).
		Msg("Observability provider created")
	return p, nil
}

// createResource creates an OpenTelemetry resource with service information.
func (p *provider) createResource() (*resource.Resource, error) {
	customRes, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(p.service.Name),
			semconv.ServiceVersion(p.service.Version),
		),
	)
	if err != nil {
		return nil, err
	}
	return resource.Merge(resource.Default(), customRes)
}

func (p *provider) initTraceProvider(res *resource.Resource) error {
	exporter, err := p.createTraceExporter()
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	return nil
}

// createTraceExporter creates a trace exporter based on the configured endpoint.
func (p *provider) createTraceExporter() (sdktrace.SpanExporter, error) {
	if p.config.Endpoint == EndpointStdout {
		opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		if p.settings.writer != nil {
			opts = append(opts, stdouttrace.WithWriter(p.settings.writer))
		}
		return stdouttrace.New(opts...)
	}

	switch p.config.Protocol {
	case ProtocolHTTP:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(p.config.Endpoint)}
		if p.config.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(context.Background(), opts...)
	case ProtocolGRPC:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(p.config.Endpoint)}
		if p.config.Insecure {
			opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
		}
		return otlptracegrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("trace protocol '%s': %w", p.config.Protocol, ErrInvalidProtocol)
	}
}

// TracerProvider returns the configured trace provider.
func (p *provider) TracerProvider() trace.TracerProvider {
	return p.tracerProvider
}

// MeterProvider returns the configured meter provider.
func (p *provider) MeterProvider() metric.MeterProvider {
	return p.meterProvider
}

// Shutdown gracefully shuts down the provider.
func (p *provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if err := p.tracerProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown trace provider: %w", err))
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}

// ForceFlush immediately flushes any pending telemetry data.
func (p *provider) ForceFlush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if err := p.tracerProvider.ForceFlush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush trace provider: %w", err))
	}
	if err := p.meterProvider.ForceFlush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush meter provider: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("flush errors: %w", errors.Join(errs...))
	}
	return nil
}
