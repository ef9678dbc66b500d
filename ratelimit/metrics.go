package ratelimit

import (
	"context"

	"github.com/ceyewan/sinteflake/metrics"
)

const (
	// MetricAllowed 允许通过的检查次数 (Counter)
	MetricAllowed = "ratelimit_allowed_total"

	// MetricDenied 被拒绝的检查次数 (Counter)
	MetricDenied = "ratelimit_denied_total"

	// MetricErrors 限流器自身出错的次数 (Counter)
	MetricErrors = "ratelimit_errors_total"

	// LabelMode 模式标签 (standalone/distributed)
	LabelMode = "mode"
)

type limiterMetrics struct {
	allowed metrics.Counter
	denied  metrics.Counter
	errors  metrics.Counter
	labels  []metrics.Label
}

func newLimiterMetrics(meter metrics.Meter, mode string) (*limiterMetrics, error) {
	allowed, err := meter.Counter(MetricAllowed, "Number of allowed rate limit checks")
	if err != nil {
		return nil, err
	}
	denied, err := meter.Counter(MetricDenied, "Number of denied rate limit checks")
	if err != nil {
		return nil, err
	}
	errs, err := meter.Counter(MetricErrors, "Number of rate limiter failures")
	if err != nil {
		return nil, err
	}
	return &limiterMetrics{
		allowed: allowed,
		denied:  denied,
		errors:  errs,
		labels:  []metrics.Label{metrics.L(LabelMode, mode)},
	}, nil
}

func (m *limiterMetrics) observe(ctx context.Context, allowed bool) {
	if allowed {
		m.allowed.Inc(ctx, m.labels...)
		return
	}
	m.denied.Inc(ctx, m.labels...)
}
