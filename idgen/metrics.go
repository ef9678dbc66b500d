package idgen

import (
	"strconv"

	"github.com/ceyewan/sinteflake/metrics"
)

// 指标名称
const (
	// MetricGenerated 成功生成的 ID 总数 (Counter)
	MetricGenerated = "idgen_generated_total"

	// MetricTickExhausted 序列号耗尽、进入等待的次数 (Counter)
	MetricTickExhausted = "idgen_tick_exhausted_total"

	// MetricClockRegression 检测到时钟回拨的次数 (Counter)
	MetricClockRegression = "idgen_clock_regression_total"

	// MetricWaitDuration 慢路径等待耗时 (Histogram, 秒)
	MetricWaitDuration = "idgen_wait_duration_seconds"
)

type generatorMetrics struct {
	generated  metrics.Counter
	exhausted  metrics.Counter
	regression metrics.Counter
	wait       metrics.Histogram
	labels     []metrics.Label
}

func newGeneratorMetrics(meter metrics.Meter, nodeID uint64) (*generatorMetrics, error) {
	generated, err := meter.Counter(MetricGenerated, "Number of ids generated")
	if err != nil {
		return nil, err
	}
	exhausted, err := meter.Counter(MetricTickExhausted, "Number of times a tick ran out of sequence numbers")
	if err != nil {
		return nil, err
	}
	regression, err := meter.Counter(MetricClockRegression, "Number of detected clock regressions")
	if err != nil {
		return nil, err
	}
	wait, err := meter.Histogram(MetricWaitDuration, "Time spent waiting for the next tick",
		metrics.WithUnit("s"),
		metrics.WithBuckets([]float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}),
	)
	if err != nil {
		return nil, err
	}
	return &generatorMetrics{
		generated:  generated,
		exhausted:  exhausted,
		regression: regression,
		wait:       wait,
		labels:     []metrics.Label{metrics.L(metrics.LabelNodeID, strconv.FormatUint(nodeID, 10))},
	}, nil
}
