package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"

	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/xerrors"
)

// New 创建 Meter
//
// 每个 Meter 持有独立的 Prometheus Registry，测试中多次创建互不冲突。
// cfg.Port 大于 0 时额外启动独立的采集端口，否则由调用方通过 HTTPHandler 挂载。
func New(cfg *Config, opts ...Option) (Meter, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "metrics config is required")
	}
	if !cfg.Enabled {
		return Discard(), nil
	}
	cfg.setDefaults()
	if !strings.HasPrefix(cfg.Path, "/") {
		return nil, xerrors.Wrapf(xerrors.ErrInvalidInput, "metrics path %q must start with /", cfg.Path)
	}

	o := options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	provider, handler, err := newPromProvider(cfg)
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(provider)

	if cfg.EnableRuntime {
		if err := otelruntime.Start(otelruntime.WithMeterProvider(provider)); err != nil {
			_ = provider.Shutdown(context.Background())
			return nil, xerrors.Wrap(err, "start runtime instrumentation")
		}
	}

	pm := &promMeter{
		meter:    provider.Meter(scopeName),
		provider: provider,
		handler:  handler,
		logger:   o.logger,
	}
	if cfg.Port > 0 {
		pm.listen(":"+strconv.Itoa(cfg.Port), cfg.Path)
	}
	return pm, nil
}

// Must 同 New，出错时 panic
func Must(cfg *Config, opts ...Option) Meter {
	return xerrors.Must(New(cfg, opts...))
}

// HTTPHandler 返回 Prometheus 采集 Handler，noop Meter 返回 404
func HTTPHandler(m Meter) http.Handler {
	if pm, ok := m.(*promMeter); ok {
		return pm.handler
	}
	return http.NotFoundHandler()
}

const scopeName = "github.com/ceyewan/sinteflake"

func newPromProvider(cfg *Config) (*sdkmetric.MeterProvider, http.Handler, error) {
	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.ServiceVersionKey.String(cfg.Version),
	))
	if err != nil {
		return nil, nil, xerrors.Wrap(err, "create resource")
	}

	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, nil, xerrors.Wrap(err, "create prometheus exporter")
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter), sdkmetric.WithResource(res))
	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	return provider, handler, nil
}

type promMeter struct {
	meter    metric.Meter
	provider *sdkmetric.MeterProvider
	handler  http.Handler
	logger   clog.Logger

	mu  sync.Mutex
	srv *http.Server
}

func (m *promMeter) listen(addr, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, m.handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	m.mu.Lock()
	m.srv = srv
	m.mu.Unlock()

	go func() {
		m.logger.Info("metrics endpoint listening", clog.String("addr", addr), clog.String("path", path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics endpoint stopped", clog.Error(err))
		}
	}()
}

func (m *promMeter) Counter(name, desc string, opts ...MetricOption) (Counter, error) {
	o := applyMetricOptions(opts)
	c, err := m.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(o.Unit))
	if err != nil {
		return nil, xerrors.Wrapf(err, "create counter %s", name)
	}
	return counter{c}, nil
}

func (m *promMeter) Gauge(name, desc string, opts ...MetricOption) (Gauge, error) {
	o := applyMetricOptions(opts)
	g, err := m.meter.Float64Gauge(name, metric.WithDescription(desc), metric.WithUnit(o.Unit))
	if err != nil {
		return nil, xerrors.Wrapf(err, "create gauge %s", name)
	}
	return &gauge{g: g, current: make(map[string]float64)}, nil
}

func (m *promMeter) Histogram(name, desc string, opts ...MetricOption) (Histogram, error) {
	o := applyMetricOptions(opts)
	histOpts := []metric.Float64HistogramOption{metric.WithDescription(desc), metric.WithUnit(o.Unit)}
	if len(o.Buckets) > 0 {
		histOpts = append(histOpts, metric.WithExplicitBucketBoundaries(o.Buckets...))
	}
	h, err := m.meter.Float64Histogram(name, histOpts...)
	if err != nil {
		return nil, xerrors.Wrapf(err, "create histogram %s", name)
	}
	return histogram{h}, nil
}

func (m *promMeter) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	srv := m.srv
	m.mu.Unlock()

	var errSrv error
	if srv != nil {
		errSrv = srv.Shutdown(ctx)
	}
	return xerrors.Combine(errSrv, m.provider.Shutdown(ctx))
}
