package telemetry

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/wash/internal/build"
	"go.trai.ch/zerr"
)

// Setup installs a global tracer provider exporting spans as JSON lines to w.
// The returned function flushes pending spans and must be called before exit.
func Setup(w io.Writer) (func(context.Context) error, error) {
	tp, err := NewProvider(w)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// NewProvider creates a tracer provider exporting to w.
func NewProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create trace exporter")
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", "wash"),
		attribute.String("service.version", build.Version),
	)

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	), nil
}
