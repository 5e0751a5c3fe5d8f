// internal/common/observability/metrics.go
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

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider shutdowner
	meter          otelmetric.Meter
	runCounter     otelmetric.Int64Counter
	runDuration    otelmetric.Float64Histogram
	messageCounter otelmetric.Int64Counter
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// New registers the otel meter provider behind the Prometheus exporter and, when
// jaegerEndpoint is set, a tracer provider exporting to Jaeger.
func New(serviceName, jaegerEndpoint string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return &Observability{}, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	runCounter, _ := meter.Int64Counter(
		"collections.runs",
		otelmetric.WithDescription("Number of reminder runs"),
	)

	runDuration, _ := meter.Float64Histogram(
		"collections.run.duration",
		otelmetric.WithDescription("Reminder run duration"),
		otelmetric.WithUnit("ms"),
	)

	messageCounter, _ := meter.Int64Counter(
		"collections.messages",
		otelmetric.WithDescription("Debtor groups sent or queued"),
	)

	o := &Observability{
		meterProvider:  provider,
		meter:          meter,
		runCounter:     runCounter,
		runDuration:    runDuration,
		messageCounter: messageCounter,
	}

	if jaegerEndpoint != "" {
		tp, err := newTracerProvider(serviceName, jaegerEndpoint)
		if err != nil {
			return o, err
		}
		otel.SetTracerProvider(tp)
		o.tracerProvider = tp
	}

	return o, nil
}

func (o *Observability) RecordRun(ctx context.Context, trigger, status string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.String("status", status),
	)
	if o.runCounter != nil {
		o.runCounter.Add(ctx, 1, attrs)
	}
	if o.runDuration != nil {
		o.runDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordMessages(ctx context.Context, path string, n int) {
	if o.messageCounter != nil && n > 0 {
		o.messageCounter.Add(ctx, int64(n), otelmetric.WithAttributes(
			attribute.String("path", path),
		))
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
}
