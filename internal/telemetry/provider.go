package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Settings names the service in exported telemetry. An empty OTLPEndpoint
// disables span export.
type Settings struct {
	ServiceName    string
	ServiceVersion string
	OTLPEndpoint   string
}

// Providers owns the global tracer provider and the storefront's meter provider.
type Providers struct {
	MeterProvider  *metric.MeterProvider
	MetricsHandler http.Handler

	tracer *trace.TracerProvider
}

// Setup installs W3C propagation, the OTLP tracer provider when an endpoint
// is configured, and a Prometheus-backed meter provider.
func Setup(ctx context.Context, s Settings) (*Providers, error) {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(s.ServiceName),
		semconv.ServiceVersion(s.ServiceVersion),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p := &Providers{}
	if s.OTLPEndpoint != "" {
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(s.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		p.tracer = trace.NewTracerProvider(
			trace.WithBatcher(exporter),
			trace.WithResource(res),
		)
		otel.SetTracerProvider(p.tracer)
	}

	mp, handler, err := newMeterProvider(res)
	if err != nil {
		if p.tracer != nil {
			_ = p.tracer.Shutdown(ctx)
		}
		return nil, fmt.Errorf("failed to create meter provider: %w", err)
	}
	p.MeterProvider = mp
	p.MetricsHandler = handler

	return p, nil
}

// Tracing reports whether spans are exported.
func (p *Providers) Tracing() bool {
	return p.tracer != nil
}

// Shutdown flushes pending spans and stops the meter provider.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.tracer != nil {
		errs = append(errs, p.tracer.Shutdown(ctx))
	}
	if p.MeterProvider != nil {
		errs = append(errs, p.MeterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
