package trace

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"go.opentelemetry.io/contrib/instrumentation/host"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const instrumentation = "github.com/isoflow/clinicorder"

type InitConfig struct {
	ServiceName    string
	Version        string
	Env            string
	TraceEndpoint  string
	MetricEndpoint string
	// Headers is a comma separated k=v list sent with every export.
	Headers  string
	Insecure bool
	// Stdout exports to stdout when no endpoint is configured.
	Stdout bool
}

var shutdowns []func(context.Context) error

func InitTrace(ctx context.Context, conf *InitConfig) {
	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", conf.ServiceName),
		attribute.String("service.version", conf.Version),
		attribute.String("deployment.environment", conf.Env),
	))
	if err != nil {
		logger.Errorf(ctx, "init trace resource err: %+v", err)
		res = resource.Default()
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	headers := parseHeaders(conf.Headers)

	spanExporter, err := newSpanExporter(ctx, conf, headers)
	if err != nil {
		logger.Errorf(ctx, "init trace exporter err: %+v", err)
	} else if spanExporter != nil {
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(spanExporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		)
		otel.SetTracerProvider(tp)
		shutdowns = append(shutdowns, tp.Shutdown)
	}

	metricExporter, err := newMetricExporter(ctx, conf, headers)
	if err != nil {
		logger.Errorf(ctx, "init metric exporter err: %+v", err)
		return
	}
	if metricExporter == nil {
		return
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(30*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	shutdowns = append(shutdowns, mp.Shutdown)

	if err := host.Start(host.WithMeterProvider(mp)); err != nil {
		logger.Errorf(ctx, "start host metrics err: %+v", err)
	}
	if err := runtime.Start(runtime.WithMeterProvider(mp),
		runtime.WithMinimumReadMemStatsInterval(15*time.Second)); err != nil {
		logger.Errorf(ctx, "start runtime metrics err: %+v", err)
	}
}

func newSpanExporter(ctx context.Context, conf *InitConfig, headers map[string]string) (sdktrace.SpanExporter, error) {
	if conf.TraceEndpoint == "" {
		if conf.Stdout {
			return stdouttrace.New()
		}
		return nil, nil
	}
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(conf.TraceEndpoint),
		otlptracegrpc.WithHeaders(headers),
	}
	if conf.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
}

func newMetricExporter(ctx context.Context, conf *InitConfig, headers map[string]string) (sdkmetric.Exporter, error) {
	if conf.MetricEndpoint == "" {
		if conf.Stdout {
			return stdoutmetric.New()
		}
		return nil, nil
	}
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(conf.MetricEndpoint),
		otlpmetricgrpc.WithHeaders(headers),
	}
	if conf.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	return otlpmetricgrpc.New(ctx, opts...)
}

func parseHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	for _, kv := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(kv), "=")
		if !ok || k == "" {
			continue
		}
		headers[k] = v
	}
	return headers
}

func CloseTrace() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var errs []error
	for _, fn := range shutdowns {
		errs = append(errs, fn(ctx))
	}
	shutdowns = nil
	if err := errors.Join(errs...); err != nil {
		logger.Errorf(ctx, "close trace err: %+v", err)
	}
}

func Tracer() oteltrace.Tracer {
	return otel.Tracer(instrumentation)
}

func Meter() metric.Meter {
	return otel.Meter(instrumentation)
}

// StartSpan opens a span on the service tracer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	return Tracer().Start(ctx, name, oteltrace.WithAttributes(attrs...))
}
