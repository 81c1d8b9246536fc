package otel

import (
	"context"
	"fmt"

	"yqpoint-system/config"
	"yqpoint-system/tools"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "yqpoint-system"

var tracerProvider *sdktrace.TracerProvider

func Init() {
	cfg := config.Get().OTel
	if !cfg.Enable {
		return
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	tools.PanicOnErr(err)

	exp, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithInsecure(),
		otlptracehttp.WithEndpoint(fmt.Sprintf("%s:%s", cfg.AgentHost, cfg.AgentPort)),
	)
	tools.PanicOnErr(err)

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exp),
	)
	otel.SetTracerProvider(tracerProvider)
}

// Tracer 未启用时返回全局 noop 实现
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentation)
}

// Start 为业务操作开 span，如 "transfer.settle"
func Start(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name)
}

func Shutdown(ctx context.Context) error {
	if tracerProvider != nil {
		return tracerProvider.Shutdown(ctx)
	}
	return nil
}
