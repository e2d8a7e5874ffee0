// Package observability wires OpenTelemetry metrics (Prometheus exporter) and tracing (Jaeger exporter).
package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer
	jobCounter     otelmetric.Int64Counter
	jobDuration    otelmetric.Float64Histogram
}

// New sets up the meter provider; tracing is enabled when jaegerEndpoint is non-empty.
func New(serviceName, jaegerEndpoint string) *Observability {
	o := &Observability{tracer: otel.Tracer(serviceName)}

	if exporter, err := prometheus.New(); err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
	} else {
		provider := metric.NewMeterProvider(metric.WithReader(exporter))
		otel.SetMeterProvider(provider)
		o.meterProvider = provider
		o.meter = provider.Meter(serviceName)

		o.jobCounter, _ = o.meter.Int64Counter(
			"jobs.processed",
			otelmetric.WithDescription("Number of jobs processed"),
		)
		o.jobDuration, _ = o.meter.Float64Histogram(
			"jobs.duration",
			otelmetric.WithDescription("Job processing duration"),
			otelmetric.WithUnit("ms"),
		)
	}

	if jaegerEndpoint != "" {
		tp, err := newTracerProvider(serviceName, jaegerEndpoint)
		if err != nil {
			log.Printf("Failed to create Jaeger exporter: %v", err)
		} else {
			otel.SetTracerProvider(tp)
			o.tracerProvider = tp
			o.tracer = tp.Tracer(serviceName)
		}
	}

	return o
}

// StartSpan opens a span for one job; callers must End it.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := o.tracer
	if tracer == nil {
		tracer = otel.Tracer("interview-prep-workers")
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	if o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
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
