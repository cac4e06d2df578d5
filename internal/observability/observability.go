// Package observability wires OpenTelemetry traces and metrics for the
// extraction pipeline. Without Init, instruments bind to the global no-op
// providers, so the pipeline can always record.
package observability

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/joseph-ayodele/docverify/internal/pipeline"

// Instruments holds the OTEL instruments used by the pipeline.
type Instruments struct {
	Tracer trace.Tracer
	Logger otellog.Logger

	Runs        metric.Int64Counter
	Pages       metric.Int64Counter
	RunDuration metric.Float64Histogram
}

// Init sets up OTEL trace, metric, and log providers with OTLP HTTP exporters.
// Configuration comes from standard OTEL env vars (OTEL_EXPORTER_OTLP_ENDPOINT, etc.).
// Returns a shutdown function that must be called on application exit.
func Init(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, err
	}

	traceExp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricExp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logExp, err := otlploghttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, err
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)

	return func(ctx context.Context) error {
		return errors.Join(
			tp.Shutdown(ctx),
			mp.Shutdown(ctx),
			lp.Shutdown(ctx),
		)
	}, nil
}

// NewInstruments builds instruments from the global providers.
func NewInstruments() (*Instruments, error) {
	meter := otel.Meter(scopeName)

	runs, err := meter.Int64Counter("docverify.runs",
		metric.WithDescription("Extraction runs by method and outcome"),
		metric.WithUnit("{run}"))
	if err != nil {
		return nil, err
	}

	pages, err := meter.Int64Counter("docverify.pages",
		metric.WithDescription("Pages sent through rasterization and OCR by outcome"),
		metric.WithUnit("{page}"))
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram("docverify.run.duration",
		metric.WithDescription("Extraction run duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		Tracer:      otel.Tracer(scopeName),
		Logger:      global.GetLoggerProvider().Logger(scopeName),
		Runs:        runs,
		Pages:       pages,
		RunDuration: runDuration,
	}, nil
}

// EmitRun records a structured log event for a finished extraction run.
func (i *Instruments) EmitRun(ctx context.Context, runID, method string, success bool, confidence float64, pages, processed int, durationMs float64) {
	if i == nil || i.Logger == nil {
		return
	}
	status := "ok"
	sev := otellog.SeverityInfo
	if !success {
		status = "failed"
		sev = otellog.SeverityWarn
	}
	var rec otellog.Record
	rec.SetSeverity(sev)
	rec.SetBody(otellog.StringValue("extraction completed"))
	rec.AddAttributes(
		otellog.String("docverify.run_id", runID),
		otellog.String("docverify.method", method),
		otellog.Float64("docverify.confidence", confidence),
		otellog.Int("docverify.pages", pages),
		otellog.Int("docverify.processed_pages", processed),
		otellog.Float64("docverify.duration_ms", durationMs),
		otellog.String("status", status),
	)
	i.Logger.Emit(ctx, rec)
}
