package metrics

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type counter struct {
	c metric.Int64Counter
}

func (c counter) Inc(ctx context.Context, labels ...Label) {
	c.c.Add(ctx, 1, attrs(labels))
}

// Add 计数器以整数累计，小数部分截断，非正数忽略
func (c counter) Add(ctx context.Context, val float64, labels ...Label) {
	if val <= 0 {
		return
	}
	c.c.Add(ctx, int64(val), attrs(labels))
}

// gauge 按标签组合在本地记住当前值，Inc/Dec 基于它计算后整体上报
type gauge struct {
	g metric.Float64Gauge

	mu      sync.Mutex
	current map[string]float64
}

func (g *gauge) Set(ctx context.Context, val float64, labels ...Label) {
	g.apply(ctx, labels, func(float64) float64 { return val })
}

func (g *gauge) Inc(ctx context.Context, labels ...Label) {
	g.apply(ctx, labels, func(v float64) float64 { return v + 1 })
}

func (g *gauge) Dec(ctx context.Context, labels ...Label) {
	g.apply(ctx, labels, func(v float64) float64 { return v - 1 })
}

func (g *gauge) apply(ctx context.Context, labels []Label, next func(float64) float64) {
	k := labelKey(labels)

	g.mu.Lock()
	v := next(g.current[k])
	g.current[k] = v
	g.mu.Unlock()

	g.g.Record(ctx, v, attrs(labels))
}

type histogram struct {
	h metric.Float64Histogram
}

func (h histogram) Record(ctx context.Context, val float64, labels ...Label) {
	h.h.Record(ctx, val, attrs(labels))
}

func attrs(labels []Label) metric.MeasurementOption {
	kvs := make([]attribute.KeyValue, 0, len(labels))
	for _, l := range labels {
		kvs = append(kvs, attribute.String(l.Key, l.Value))
	}
	return metric.WithAttributes(kvs...)
}

func labelKey(labels []Label) string {
	var b strings.Builder
	for i, l := range labels {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(l.Key)
		b.WriteByte('=')
		b.WriteString(l.Value)
	}
	return b.String()
}
