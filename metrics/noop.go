package metrics

import "context"

// Discard 返回什么都不做的 Meter，组件未注入 Meter 时默认使用
func Discard() Meter { return nop{} }

type nop struct{}

func (nop) Counter(string, string, ...MetricOption) (Counter, error)     { return nop{}, nil }
func (nop) Gauge(string, string, ...MetricOption) (Gauge, error)         { return nop{}, nil }
func (nop) Histogram(string, string, ...MetricOption) (Histogram, error) { return nop{}, nil }
func (nop) Shutdown(context.Context) error                               { return nil }

func (nop) Inc(context.Context, ...Label)             {}
func (nop) Dec(context.Context, ...Label)             {}
func (nop) Add(context.Context, float64, ...Label)    {}
func (nop) Set(context.Context, float64, ...Label)    {}
func (nop) Record(context.Context, float64, ...Label) {}
