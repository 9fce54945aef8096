// Package apm configures OpenTelemetry tracing and wraps spans.
package apm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/arbitrage-executor/internal/logger"
)

type Provider string

const (
	ZipkinProvider   Provider = "zipkin"
	OTLPGRPCProvider Provider = "otlp-grpc"
	OTLPHTTPProvider Provider = "otlp-http"
	ConsoleProvider  Provider = "console"
	EmptyProvider    Provider = "empty"
)

type TraceProvider interface {
	Stop() error
}

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

type TracerOptions struct {
	exporter    sdktrace.SpanExporter
	name        string
	serviceName string
	useEmpty    bool
}

type TracerOption func(*TracerOptions)

// WithServiceName sets the service.name resource attribute.
func WithServiceName(name string) TracerOption {
	return func(o *TracerOptions) {
		o.serviceName = name
	}
}

// WithProvider selects the span exporter. Exporter construction failures
// fall back to the empty provider so tracing never blocks startup.
func WithProvider(provider Provider, endpoint string, log logger.LoggerInterface) TracerOption {
	return func(o *TracerOptions) {
		ctx := context.Background()

		var (
			exp sdktrace.SpanExporter
			err error
		)
		switch provider {
		case ZipkinProvider:
			exp, err = zipkin.New(endpoint)
		case OTLPGRPCProvider:
			exp, err = otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(endpoint))
		case OTLPHTTPProvider:
			exp, err = otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
		case ConsoleProvider:
			exp, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		default:
			log.Warn(ctx, "unknown trace provider, tracing disabled", "provider", provider)
			o.useEmpty = true
			o.name = string(EmptyProvider)
			return
		}

		if err != nil {
			log.Error(ctx, "failed to create span exporter", "provider", provider, "error", err)
			o.useEmpty = true
			o.name = string(EmptyProvider)
			return
		}
		o.exporter = exp
		o.name = string(provider)
	}
}

// NewTraceProvider installs a global tracer provider.
func NewTraceProvider(options ...TracerOption) TraceProvider {
	opts := &TracerOptions{serviceName: "arbitrage-executor"}
	for _, opt := range options {
		opt(opts)
	}

	if opts.useEmpty || opts.exporter == nil {
		return emptyTraceProvider{}
	}

	rsrc, _ := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(opts.serviceName),
			attribute.String("otel.provider", opts.name),
		))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(opts.exporter),
		sdktrace.WithResource(rsrc),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	return &traceProvider{tp}
}

func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return o.tp.Shutdown(ctx)
}

type emptyTraceProvider struct{}

// NewEmptyTraceProvider leaves the global no-op tracer in place.
func NewEmptyTraceProvider() TraceProvider {
	return emptyTraceProvider{}
}

func (emptyTraceProvider) Stop() error { return nil }
