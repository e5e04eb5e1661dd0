// Package telemetry installs an opentelemetry tracer provider that writes
// finished spans as JSON, one object per span.
package telemetry

import (
	"context"
	"io"
	"os"

	"github.com/R-a-dio/peaknorm/config"
	"github.com/R-a-dio/peaknorm/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Init sets up tracing as configured in cfg, the function returned flushes
// all pending spans and should be called before exiting
func Init(ctx context.Context, cfg config.Config, service string) (func(), error) {
	const op errors.Op = "telemetry.Init"
	conf := cfg.Conf().Telemetry

	var out io.Writer = os.Stderr
	closeOutput := func() error { return nil }
	if conf.Output != "" {
		f, err := os.OpenFile(conf.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, errors.E(op, errors.Path(conf.Output), err)
		}
		out, closeOutput = f, f.Close
	}

	tp, err := InitTracer(ctx, out, service)
	if err != nil {
		closeOutput()
		return nil, errors.E(op, err)
	}

	closeFn := func() {
		tp.Shutdown(context.Background())
		closeOutput()
	}

	return closeFn, nil
}

// InitTracer creates a tracer provider exporting to w and installs it as the
// global provider
func InitTracer(ctx context.Context, w io.Writer, service string) (*trace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(semconv.ServiceName("peaknorm:"+service)),
	)
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithSampler(trace.AlwaysSample()),
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}
