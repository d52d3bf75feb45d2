// Package telemetry sets up OpenTelemetry tracing for the pipeline.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	ServiceName    = "insider-signal"
	TracerName     = "github.com/bighogz/insider-signal"
	ExporterStdout = "stdout"
	ExporterNone   = "none"
)

// Shutdown flushes and stops the tracer provider.
type Shutdown func(context.Context) error

// Setup returns a tracer for the given exporter. "none" (or empty) yields a
// no-op tracer. w defaults to stdout.
func Setup(exporter string, w io.Writer) (trace.Tracer, Shutdown, error) {
	switch exporter {
	case "", ExporterNone:
		return noop.NewTracerProvider().Tracer(TracerName), func(context.Context) error { return nil }, nil
	case ExporterStdout:
	default:
		return nil, nil, fmt.Errorf("unsupported trace exporter: %s", exporter)
	}

	if w == nil {
		w = os.Stdout
	}
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, nil, fmt.Errorf("create trace exporter: %w", err)
	}
	res := resource.NewSchemaless(attribute.String("service.name", ServiceName))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Tracer(TracerName), tp.Shutdown, nil
}
