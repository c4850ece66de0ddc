// Package tracing 初始化 OpenTelemetry，并为检索请求与计数聚合提供 span.
//
//	if err := tracing.InitTracer(cfg.Tracing); err != nil { ... }
//	defer tracing.ShutdownTracer(ctx)
//
//	ctx, span := tracing.StartSpan(ctx, "aggregator.compute_counts")
//	defer span.End()
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/simholt/hyrax/pkg/configs"
)

const (
	serviceName         = "hyrax"
	instrumentationName = "github.com/simholt/hyrax"
)

var provider *sdktrace.TracerProvider

type exporterFactory func(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error)

var exporters = map[string]exporterFactory{
	"otlp-http": func(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
		return otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	},
	"otlp-grpc": func(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
		return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
	},
	"zipkin": func(_ context.Context, endpoint string) (sdktrace.SpanExporter, error) {
		return zipkin.New(endpoint)
	},
}

// InitTracer 未启用时什么也不做，StartSpan 使用全局 noop provider.
func InitTracer(cfg configs.TracingConfig) error {
	if !cfg.Enabled {
		return nil
	}

	ctx := context.Background()

	newExporter, ok := exporters[cfg.Exporter]
	if !ok {
		return fmt.Errorf("tracing: unsupported exporter %q", cfg.Exporter)
	}

	exp, err := newExporter(ctx, cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("tracing: %s exporter: %w", cfg.Exporter, err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(resourceAttributes(cfg)...))
	if err != nil {
		return fmt.Errorf("tracing: resource: %w", err)
	}

	provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp,
			sdktrace.WithBatchTimeout(cfg.BatchTimeout),
			sdktrace.WithMaxExportBatchSize(cfg.MaxBatchSize),
			sdktrace.WithMaxQueueSize(cfg.MaxQueueSize),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return nil
}

// resourceAttributes 服务名与版本不可被覆盖.
func resourceAttributes(cfg configs.TracingConfig) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(configs.AppVersion),
	}

	for k, v := range cfg.Attributes {
		if k == string(semconv.ServiceNameKey) || k == string(semconv.ServiceVersionKey) {
			continue
		}

		attrs = append(attrs, attribute.String(k, v))
	}

	return attrs
}

// ShutdownTracer 刷出剩余 span.
func ShutdownTracer(ctx context.Context) error {
	if provider == nil {
		return nil
	}

	return provider.Shutdown(ctx)
}

// StartSpan 以本服务的 scope 开始 span，调用方负责 End.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}
