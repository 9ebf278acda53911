package delivery

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fnklabs/monger-go/correlation"
	"github.com/fnklabs/monger-go/logger"
)

// MaxAttempts is the number of times one envelope is sent before giving up.
const MaxAttempts = 5

const (
	spanDeliver = "monger.deliver"

	attrCorrelationID = "monger.correlation_id"
	attrURL           = "url.full"
	attrAttempts      = "monger.attempts"
)

// State is the terminal state of one delivery.
type State int

const (
	// Succeeded means one attempt was accepted.
	Succeeded State = iota + 1
	// Exhausted means every attempt failed.
	Exhausted
)

func (s State) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	default:
		return "attempting"
	}
}

// Identity is the caller identity attached to every envelope.
type Identity struct {
	User  string
	Token string
}

// Result describes a finished delivery.
type Result struct {
	CorrelationID string
	Address       string
	Attempts      int
	State         State
	Last          Outcome
	Elapsed       time.Duration
}

// Observer receives the Result of every delivery.
type Observer func(Result)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithGenerator replaces the correlation id generator.
func WithGenerator(g correlation.Generator) Option {
	return func(p *Pipeline) {
		if g != nil {
			p.generate = g
		}
	}
}

// WithObserver registers fn to receive every Result.
func WithObserver(fn Observer) Option {
	return func(p *Pipeline) {
		p.observer = fn
	}
}

// WithMeterProvider records delivery metrics with mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(p *Pipeline) {
		if mp != nil {
			p.meterProvider = mp
		}
	}
}

// WithTracerProvider records delivery spans with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) {
		if tp != nil {
			p.tracerProvider = tp
		}
	}
}

// WithMaxAttempts overrides the attempt budget. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// Pipeline delivers envelopes with bounded, immediate retry. It holds no
// mutable state and is safe for concurrent use when its Transport is.
type Pipeline struct {
	identity    Identity
	transport   Transport
	log         logger.Logger
	generate    correlation.Generator
	observer    Observer
	maxAttempts int

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
	metrics        *deliveryMetrics
}

// New creates a Pipeline sending through transport on behalf of identity.
func New(identity Identity, transport Transport, log logger.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	p := &Pipeline{
		identity:    identity,
		transport:   transport,
		log:         log,
		generate:    correlation.NewID,
		maxAttempts: MaxAttempts,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.meterProvider == nil {
		p.meterProvider = otel.GetMeterProvider()
	}
	if p.tracerProvider == nil {
		p.tracerProvider = otel.GetTracerProvider()
	}
	p.tracer = p.tracerProvider.Tracer(instrumentationName)
	p.metrics = newDeliveryMetrics(p.meterProvider, log)
	return p
}

// Deliver sends env to address until the service accepts it or the attempt
// budget runs out. Failures are logged and reported through the Result and
// the observer; they are never returned as errors.
func (p *Pipeline) Deliver(ctx context.Context, address string, env Envelope) Result {
	start := time.Now()
	id := p.generate()
	env = env.WithCommon(id, p.identity.User, p.identity.Token)

	ctx = correlation.WithID(ctx, id)
	ctx, span := p.tracer.Start(ctx, spanDeliver,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(attrCorrelationID, id),
			attribute.String(attrURL, address),
		),
	)
	defer span.End()

	result := Result{CorrelationID: id, Address: address}

	body, err := env.MarshalJSON()
	if err != nil {
		// Unencodable field values fail every attempt the same way.
		result.Last = Failed(err)
	}

	for result.Attempts < p.maxAttempts {
		result.Attempts++
		p.log.Debug().
			Str("id", id).
			Str("address", address).
			Int("attempt", result.Attempts).
			Msg("Attempting request")

		if body != nil {
			result.Last = p.attempt(ctx, address, body)
		}
		p.metrics.recordAttempt(ctx, result.Last.Kind)

		if result.Last.IsSuccess() {
			result.State = Succeeded
			p.log.Info().
				Str("id", id).
				Str("address", address).
				Int("attempt", result.Attempts).
				Msg("Request was successfully executed")
			break
		}

		event := p.log.Warn().
			Str("id", id).
			Str("address", address).
			Int("attempt", result.Attempts).
			Str("message", result.Last.Message)
		if result.Last.Err != nil {
			event = event.Err(result.Last.Err)
		}
		event.Msg("Request execution problem")
	}

	if result.State != Succeeded {
		result.State = Exhausted
		span.SetStatus(codes.Error, result.Last.Message)
	}
	result.Elapsed = time.Since(start)

	span.SetAttributes(attribute.Int(attrAttempts, result.Attempts))
	p.metrics.recordResult(ctx, result.State, result.Elapsed)

	if p.observer != nil {
		p.observer(result)
	}
	return result
}

func (p *Pipeline) attempt(ctx context.Context, address string, body []byte) Outcome {
	reply, err := p.transport.Post(ctx, address, DefaultHeaders(), body)
	if err != nil {
		return Failed(err)
	}
	return Interpret(reply)
}
