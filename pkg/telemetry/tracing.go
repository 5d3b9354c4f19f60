// Package telemetry wires OpenTelemetry tracing for the gateway.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/papercomputeco/murmur"

// Config drives how tracing is initialized.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Endpoint is an OTLP/HTTP collector address (host:port). Empty disables export.
	Endpoint string

	// Insecure sends traces over plain HTTP.
	Insecure bool
}

// Provider owns the tracer provider for the process.
type Provider struct {
	provider trace.TracerProvider
	tracer   trace.Tracer
}

// Setup builds a Provider. Without an endpoint it is a no-op tracer.
// The provider is also registered as the otel global.
func Setup(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Endpoint == "" {
		return NewProvider(noop.NewTracerProvider()), nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating otlp exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("building resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return NewProvider(tp), nil
}

// NewProvider wraps an existing tracer provider.
func NewProvider(tp trace.TracerProvider) *Provider {
	return &Provider{
		provider: tp,
		tracer:   tp.Tracer(instrumentationName),
	}
}

// Tracer returns the gateway tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if closer, ok := p.provider.(interface {
		Shutdown(context.Context) error
	}); ok {
		if err := closer.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return nil
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
