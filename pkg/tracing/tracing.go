// Package tracing 初始化 OpenTelemetry 追踪，并提供业务 span 的便捷函数.
//
// 未启用时全局 TracerProvider 保持 otel 默认的 noop 实现，StartSpan 仍可安全调用.
package tracing

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/postvault/pkg/configs"
)

const tracerName = "github.com/yeisme/postvault"

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

var provider *sdktrace.TracerProvider

// Exporters 支持的导出器类型.
func Exporters() []string {
	return slices.Sorted(maps.Keys(exporters))
}

// InitTracer 按配置创建 TracerProvider 并设为全局，同时启用 W3C TraceContext/Baggage 传播.
func InitTracer(cfg configs.TracingConfig) error {
	if !cfg.Enabled {
		return nil
	}

	newExporter, ok := exporters[cfg.ExporterType]
	if !ok {
		return fmt.Errorf("unsupported exporter type %q, want one of %v", cfg.ExporterType, Exporters())
	}

	ctx := context.Background()

	exp, err := newExporter(ctx, cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("create %s exporter: %w", cfg.ExporterType, err)
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	}
	for k, v := range cfg.ResourceLabels {
		attrs = append(attrs, attribute.String(k, v))
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
	if err != nil {
		return fmt.Errorf("build resource: %w", err)
	}

	batch := []sdktrace.BatchSpanProcessorOption{
		sdktrace.WithMaxExportBatchSize(cfg.MaxBatchSize),
		sdktrace.WithMaxQueueSize(cfg.MaxQueueSize),
	}
	if cfg.BatchTimeout > 0 {
		batch = append(batch, sdktrace.WithBatchTimeout(cfg.BatchTimeout))
	}

	provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp, batch...),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return nil
}

// ShutdownTracer 导出剩余 span 并关闭 provider.
func ShutdownTracer(ctx context.Context) error {
	if provider == nil {
		return nil
	}

	return provider.Shutdown(ctx)
}

// StartSpan 开始一个 span，调用方负责 End.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, opts...)
}

// EndSpan 记录错误（如有）并结束 span，配合 defer 使用:
//
//	ctx, span := tracing.StartSpan(ctx, "trash.delete_project")
//	defer func() { tracing.EndSpan(span, err) }()
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
}
