package monger

import (
	nethttp "net/http"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fnklabs/monger-go/correlation"
	"github.com/fnklabs/monger-go/delivery"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	observer       delivery.Observer
	generator      correlation.Generator
	httpClient     *nethttp.Client
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// WithObserver receives the result of every delivery.
func WithObserver(fn delivery.Observer) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// WithGenerator replaces the correlation id generator.
func WithGenerator(g correlation.Generator) Option {
	return func(o *options) {
		o.generator = g
	}
}

// WithHTTPClient sends requests through c. The configured timeout still applies.
func WithHTTPClient(c *nethttp.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithMeterProvider records delivery metrics with mp.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithTracerProvider records delivery and HTTP client spans with tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

func (o *options) pipelineOptions() []delivery.Option {
	opts := []delivery.Option{
		delivery.WithGenerator(o.generator),
		delivery.WithMeterProvider(o.meterProvider),
		delivery.WithTracerProvider(o.tracerProvider),
	}
	if o.observer != nil {
		opts = append(opts, delivery.WithObserver(o.observer))
	}
	return opts
}
