package observability

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// NewTracerProvider builds a TracerProvider that writes spans to w as
// newline-delimited JSON, tagged with serviceName. Production
// deployments would swap the stdout exporter for an OTLP one; stdout is
// what the pack's otel dependency ships wired to by default and is
// sufficient for the local/dev tracing this runtime targets.
func NewTracerProvider(ctx context.Context, serviceName string, w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithoutTimestamps(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	return tp, nil
}

// StartSpan starts a child span named name on tracer, tagging it with
// attrs. Callers must call the returned end func (typically via defer)
// regardless of whether the traced operation succeeds.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, func()) {
	childCtx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return childCtx, span.End
}
