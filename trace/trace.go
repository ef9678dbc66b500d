// Package trace 封装 OpenTelemetry 链路追踪的初始化，以及 Gin 中间件。
//
// 发号路径上只有批量发号与等待下一个 tick 两类 Span，名称见 contract.go。
package trace

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"

	"github.com/ceyewan/sinteflake/xerrors"
)

// ShutdownFunc 刷新并关闭 TracerProvider
type ShutdownFunc func(context.Context) error

const exportTimeout = 5 * time.Second

// Init 安装全局 TracerProvider 与 W3C 传播器
//
// Enabled 为 false 时等同于 Discard。启用时 Span 通过 OTLP gRPC 发往 Endpoint。
func Init(cfg *Config) (ShutdownFunc, error) {
	if cfg != nil && !cfg.Enabled {
		return Discard(cfg.ServiceName)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	ctx := context.Background()
	res, err := newResource(ctx, cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	exporterOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithTimeout(exportTimeout),
	}
	if cfg.Insecure {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, xerrors.Wrap(err, "create otlp exporter")
	}

	export := sdktrace.WithBatcher(exporter)
	if cfg.Batcher == "simple" {
		export = sdktrace.WithSyncer(exporter)
	}
	return install(res, cfg.Sampler, export), nil
}

// Discard 安装不导出的 TracerProvider
//
// Span 依旧携带 TraceID，日志里的 trace_id 仍可关联，只是不会离开进程。
func Discard(serviceName string) (ShutdownFunc, error) {
	res, err := newResource(context.Background(), serviceName)
	if err != nil {
		return nil, err
	}
	return install(res, 1.0), nil
}

func newResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	var opts []resource.Option
	if serviceName != "" {
		opts = append(opts, resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	}
	res, err := resource.New(ctx, opts...)
	if err != nil {
		return nil, xerrors.Wrap(err, "create resource")
	}
	return res, nil
}

func install(res *resource.Resource, ratio float64, extra ...sdktrace.TracerProviderOption) ShutdownFunc {
	opts := append([]sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	}, extra...)
	tp := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown
}

func validateConfig(cfg *Config) error {
	switch {
	case cfg == nil:
		return xerrors.Wrap(xerrors.ErrInvalidInput, "trace config is required")
	case cfg.ServiceName == "":
		return xerrors.Wrap(xerrors.ErrInvalidInput, "trace service_name is required")
	case cfg.Endpoint == "":
		return xerrors.Wrap(xerrors.ErrInvalidInput, "trace endpoint is required")
	case cfg.Sampler < 0 || cfg.Sampler > 1:
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "trace sampler must be within [0,1], got %v", cfg.Sampler)
	case cfg.Batcher != "" && cfg.Batcher != "batch" && cfg.Batcher != "simple":
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "trace batcher %q is not batch or simple", cfg.Batcher)
	}
	return nil
}
