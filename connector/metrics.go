package connector

import (
	"context"

	"github.com/ceyewan/sinteflake/metrics"
)

// 指标名称
const (
	MetricConnectTotal = "connector_connect_total"
	MetricHealthy      = "connector_healthy"
)

type connectorMetrics struct {
	connects metrics.Counter
	healthy  metrics.Gauge
	labels   []metrics.Label
}

func newConnectorMetrics(meter metrics.Meter, kind, name string) (*connectorMetrics, error) {
	connects, err := meter.Counter(MetricConnectTotal, "Number of connection attempts")
	if err != nil {
		return nil, err
	}
	healthy, err := meter.Gauge(MetricHealthy, "Whether the last health probe succeeded (1) or not (0)")
	if err != nil {
		return nil, err
	}
	return &connectorMetrics{
		connects: connects,
		healthy:  healthy,
		labels:   []metrics.Label{metrics.L("connector", kind), metrics.L("name", name)},
	}, nil
}

func (m *connectorMetrics) observeConnect(ctx context.Context, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	labels := append([]metrics.Label{metrics.L(metrics.LabelOutcome, outcome)}, m.labels...)
	m.connects.Inc(ctx, labels...)
	m.setHealthy(ctx, err == nil)
}

func (m *connectorMetrics) setHealthy(ctx context.Context, ok bool) {
	v := 0.0
	if ok {
		v = 1
	}
	m.healthy.Set(ctx, v, m.labels...)
}
