package breaker

import (
	"github.com/ceyewan/sinteflake/metrics"
)

const (
	// MetricRejectsTotal 被熔断拒绝的调用数 (Counter)
	MetricRejectsTotal = "breaker_rejects_total"

	// MetricStateChanges 状态变更次数 (Counter)
	MetricStateChanges = "breaker_state_changes_total"

	LabelKey       = "key"
	LabelFromState = "from_state"
	LabelToState   = "to_state"
)

type breakerMetrics struct {
	rejects      metrics.Counter
	stateChanges metrics.Counter
}

func newBreakerMetrics(meter metrics.Meter) (*breakerMetrics, error) {
	rejects, err := meter.Counter(MetricRejectsTotal, "Calls rejected by an open circuit breaker")
	if err != nil {
		return nil, err
	}
	stateChanges, err := meter.Counter(MetricStateChanges, "Circuit breaker state transitions")
	if err != nil {
		return nil, err
	}
	return &breakerMetrics{rejects: rejects, stateChanges: stateChanges}, nil
}

func (breakerMetrics) key(k string) metrics.Label { return metrics.L(LabelKey, k) }
func (breakerMetrics) from(s State) metrics.Label { return metrics.L(LabelFromState, s.String()) }
func (breakerMetrics) to(s State) metrics.Label   { return metrics.L(LabelToState, s.String()) }
