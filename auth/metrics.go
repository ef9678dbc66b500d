package auth

import "github.com/ceyewan/sinteflake/metrics"

const (
	// MetricTokensGenerated Token 签发计数
	MetricTokensGenerated = "auth_tokens_generated_total"

	// MetricTokensValidated Token 验证计数，标签: status, error_type
	MetricTokensValidated = "auth_tokens_validated_total"

	// MetricTokensRefreshed Token 刷新计数，标签: status
	MetricTokensRefreshed = "auth_tokens_refreshed_total"
)

const (
	LabelStatus    = "status"
	LabelErrorType = "error_type"
)

type authMetrics struct {
	generated metrics.Counter
	validated metrics.Counter
	refreshed metrics.Counter
}

func newAuthMetrics(meter metrics.Meter) (*authMetrics, error) {
	generated, err := meter.Counter(MetricTokensGenerated, "Total number of tokens generated")
	if err != nil {
		return nil, err
	}
	validated, err := meter.Counter(MetricTokensValidated, "Total number of tokens validated")
	if err != nil {
		return nil, err
	}
	refreshed, err := meter.Counter(MetricTokensRefreshed, "Total number of tokens refreshed")
	if err != nil {
		return nil, err
	}
	return &authMetrics{generated: generated, validated: validated, refreshed: refreshed}, nil
}
