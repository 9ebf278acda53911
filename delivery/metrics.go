package delivery

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fnklabs/monger-go/logger"
)

const (
	// Meter and tracer name for delivery instrumentation
	instrumentationName = "monger/delivery"

	metricAttempts = "monger.delivery.attempts"
	metricResults  = "monger.delivery.results"
	metricDuration = "monger.delivery.duration"

	attrOutcome = "outcome"
	attrState   = "state"
)

// deliveryMetrics holds the instruments of one pipeline. Nil instruments are skipped.
type deliveryMetrics struct {
	attempts metric.Int64Counter
	results  metric.Int64Counter
	duration metric.Float64Histogram
}

// newDeliveryMetrics registers the delivery instruments. Registration failures
// are logged and leave the instrument unset; delivery is never affected.
func newDeliveryMetrics(provider metric.MeterProvider, log logger.Logger) *deliveryMetrics {
	meter := provider.Meter(instrumentationName)
	m := &deliveryMetrics{}

	var err error
	m.attempts, err = meter.Int64Counter(
		metricAttempts,
		metric.WithDescription("Number of delivery attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)
	logMetricError(log, metricAttempts, err)

	m.results, err = meter.Int64Counter(
		metricResults,
		metric.WithDescription("Number of completed deliveries by terminal state"),
		metric.WithUnit("{delivery}"),
	)
	logMetricError(log, metricResults, err)

	m.duration, err = meter.Float64Histogram(
		metricDuration,
		metric.WithDescription("Duration of a delivery including all attempts"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	logMetricError(log, metricDuration, err)

	return m
}

func logMetricError(log logger.Logger, name string, err error) {
	if err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("Failed to initialize metric")
	}
}

func (m *deliveryMetrics) recordAttempt(ctx context.Context, kind OutcomeKind) {
	if m.attempts == nil {
		return
	}
	m.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, kind.String())))
}

func (m *deliveryMetrics) recordResult(ctx context.Context, state State, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String(attrState, state.String()))
	if m.results != nil {
		m.results.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
}
