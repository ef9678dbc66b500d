package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ceyewan/sinteflake/xerrors"
)

const (
	MetricHTTPServerRequestTotal    = "http_server_requests_total"
	MetricHTTPServerDurationSeconds = "http_server_request_duration_seconds"
	MetricHTTPServerInflight        = "http_server_inflight_requests"
)

// 发号请求通常在亚毫秒级完成，桶从 0.5ms 起
var defaultHTTPDurationBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1}

// HTTPServerMetricsConfig HTTP 服务 RED 指标配置
type HTTPServerMetricsConfig struct {
	Service         string
	DurationBuckets []float64
}

// DefaultHTTPServerMetricsConfig 返回默认配置
func DefaultHTTPServerMetricsConfig(service string) *HTTPServerMetricsConfig {
	return &HTTPServerMetricsConfig{
		Service:         service,
		DurationBuckets: defaultHTTPDurationBuckets,
	}
}

// HTTPServerMetrics 请求数、耗时与并发中的请求数
type HTTPServerMetrics struct {
	service      string
	requestTotal Counter
	duration     Histogram
	inflight     Gauge
}

// NewHTTPServerMetrics 在 m 上注册 HTTP 服务指标
func NewHTTPServerMetrics(m Meter, cfg *HTTPServerMetricsConfig) (*HTTPServerMetrics, error) {
	if m == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "meter is nil")
	}
	if cfg == nil {
		cfg = DefaultHTTPServerMetricsConfig("")
	}

	service := strings.TrimSpace(cfg.Service)
	if service == "" {
		service = "unknown"
	}
	buckets := cfg.DurationBuckets
	if len(buckets) == 0 {
		buckets = defaultHTTPDurationBuckets
	}

	counter, err := m.Counter(MetricHTTPServerRequestTotal, "Total number of HTTP requests.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create http request counter")
	}
	duration, err := m.Histogram(MetricHTTPServerDurationSeconds, "HTTP request duration in seconds.",
		WithUnit("s"), WithBuckets(buckets))
	if err != nil {
		return nil, xerrors.Wrap(err, "create http request duration histogram")
	}
	inflight, err := m.Gauge(MetricHTTPServerInflight, "HTTP requests currently being served.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create http inflight gauge")
	}

	return &HTTPServerMetrics{
		service:      service,
		requestTotal: counter,
		duration:     duration,
		inflight:     inflight,
	}, nil
}

// start 标记请求开始，返回的函数在请求结束时调用
func (m *HTTPServerMetrics) start(ctx context.Context) func() {
	if m == nil || m.inflight == nil {
		return func() {}
	}
	label := L(LabelService, m.service)
	m.inflight.Inc(ctx, label)
	return func() { m.inflight.Dec(ctx, label) }
}

// Observe 记录一次请求，route 应为路由模板而非原始路径
func (m *HTTPServerMetrics) Observe(ctx context.Context, method string, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	route = strings.TrimSpace(route)
	if route == "" {
		route = UnknownRoute
	}

	labels := []Label{
		L(LabelService, m.service),
		L(LabelOperation, OperationHTTPServer),
		L(LabelMethod, method),
		L(LabelRoute, route),
		L(LabelStatusClass, HTTPStatusClass(status)),
		L(LabelOutcome, HTTPOutcome(status)),
	}
	m.requestTotal.Inc(ctx, labels...)
	m.duration.Record(ctx, duration.Seconds(), labels...)
}
