package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records model-provider metrics through OpenTelemetry. The
// prometheus exporter registers with the default registry, so the values are
// served by the same /metrics handler as the promauto collectors.
type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	callCounter   otelmetric.Int64Counter
	callDuration  otelmetric.Float64Histogram
	attempts      otelmetric.Int64Counter
}

// New creates an Observability backed by the prometheus exporter. If the
// exporter cannot be created the returned value records nothing.
func New(serviceName string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return &Observability{}, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	return newWithProvider(provider, serviceName), nil
}

// NewNoop returns an Observability that records nothing. Intended for tests.
func NewNoop() *Observability {
	return &Observability{}
}

func newWithProvider(provider *metric.MeterProvider, serviceName string) *Observability {
	meter := provider.Meter(serviceName)

	callCounter, _ := meter.Int64Counter(
		"model.calls",
		otelmetric.WithDescription("Number of model provider calls by outcome"),
	)

	callDuration, _ := meter.Float64Histogram(
		"model.call.duration",
		otelmetric.WithDescription("Model provider call duration including retries"),
		otelmetric.WithUnit("ms"),
	)

	attempts, _ := meter.Int64Counter(
		"model.call.attempts",
		otelmetric.WithDescription("Number of HTTP attempts made against the model provider"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		callCounter:   callCounter,
		callDuration:  callDuration,
		attempts:      attempts,
	}
}

// RecordModelCall records one logical provider call. outcome is "success" or an error code.
func (o *Observability) RecordModelCall(ctx context.Context, model, outcome string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("model", model),
		attribute.String("outcome", outcome),
	)
	if o.callCounter != nil {
		o.callCounter.Add(ctx, 1, attrs)
	}
	if o.callDuration != nil {
		o.callDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

// RecordAttempt records one HTTP attempt against the provider.
func (o *Observability) RecordAttempt(ctx context.Context, model string, statusCode int) {
	if o.attempts != nil {
		o.attempts.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("model", model),
			attribute.Int("status_code", statusCode),
		))
	}
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o.meterProvider == nil {
		return nil
	}
	return o.meterProvider.Shutdown(ctx)
}
