// Package metrics 为 sinteflake 提供统一的指标收集能力。
//
// 基于 OpenTelemetry 构建，通过 Prometheus exporter 暴露：
//
//	meter, err := metrics.New(&metrics.Config{
//	    Enabled:     true,
//	    ServiceName: "sinteflake",
//	    Port:        9090,
//	    Path:        "/metrics",
//	})
//	defer meter.Shutdown(ctx)
//
//	counter, _ := meter.Counter("idgen_generated_total", "IDs generated")
//	counter.Inc(ctx, metrics.L("node_id", "5"))
//
// 未启用时 New 返回 noop Meter，组件无需判断 nil。
package metrics

import "context"

// Counter 只增不减的累计值
type Counter interface {
	// Inc 增加 1
	Inc(ctx context.Context, labels ...Label)
	// Add 增加给定的值，负数会被忽略
	Add(ctx context.Context, val float64, labels ...Label)
}

// Gauge 可任意增减的瞬时值
type Gauge interface {
	Set(ctx context.Context, val float64, labels ...Label)
	Inc(ctx context.Context, labels ...Label)
	Dec(ctx context.Context, labels ...Label)
}

// Histogram 值的分布，例如请求耗时、等待时长
type Histogram interface {
	Record(ctx context.Context, val float64, labels ...Label)
}

// Meter 指标创建工厂
//
// 创建的指标是并发安全的。
type Meter interface {
	Counter(name string, desc string, opts ...MetricOption) (Counter, error)
	Gauge(name string, desc string, opts ...MetricOption) (Gauge, error)
	Histogram(name string, desc string, opts ...MetricOption) (Histogram, error)

	// Shutdown 刷新并关闭，通常在进程退出时调用
	Shutdown(ctx context.Context) error
}

// MetricOption 指标创建选项
type MetricOption func(*MetricOptions)

// MetricOptions 指标选项
type MetricOptions struct {
	// Unit 单位，建议使用 UCUM 代码，例如 "s"、"By"
	Unit string
	// Buckets 直方图桶边界，仅对 Histogram 生效
	Buckets []float64
}

// WithUnit 设置指标单位
func WithUnit(unit string) MetricOption {
	return func(o *MetricOptions) {
		o.Unit = unit
	}
}

// WithBuckets 设置直方图桶边界
func WithBuckets(buckets []float64) MetricOption {
	return func(o *MetricOptions) {
		o.Buckets = append([]float64(nil), buckets...)
	}
}

func applyMetricOptions(opts []MetricOption) *MetricOptions {
	o := &MetricOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
