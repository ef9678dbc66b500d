// Package breaker 为访问外部依赖的调用提供熔断保护，基于 gobreaker 实现。
//
// 每个 key 独立维护一个熔断器。闭合状态下统计失败率，超过阈值后进入打开状态，
// 此时调用直接返回 ErrOpenState 而不触达后端；Timeout 之后进入半开状态，
// 放行 MaxRequests 个探测请求决定恢复还是继续打开。
//
// sinteflake 的分布式限流器通过它访问 Redis：Redis 持续失败时不再逐个请求等待超时，
// 限流中间件拿到错误后直接放行。
//
//	brk, _ := breaker.New(&breaker.Config{Timeout: 10 * time.Second}, breaker.WithLogger(logger))
//	err := brk.Execute(ctx, "redis", func() error {
//		return client.Ping(ctx).Err()
//	})
package breaker

import (
	"context"
	"time"

	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/xerrors"
)

// Breaker 熔断器
type Breaker interface {
	// Execute 在 key 对应的熔断器保护下执行 fn，打开状态时返回 ErrOpenState
	Execute(ctx context.Context, key string, fn func() error) error

	// State 返回 key 对应熔断器的状态，尚未创建时为 StateClosed
	State(key string) (State, error)
}

// State 熔断器状态
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Config 熔断器配置
//
// YAML 示例：
//
//	breaker:
//	  timeout: 10s
//	  failure_ratio: 0.6
//	  minimum_requests: 10
type Config struct {
	// MaxRequests 半开状态下允许通过的探测请求数，默认 1
	MaxRequests uint32 `mapstructure:"max_requests" yaml:"max_requests" json:"max_requests"`

	// Interval 闭合状态下清空计数的周期，0 表示不清空
	Interval time.Duration `mapstructure:"interval" yaml:"interval" json:"interval"`

	// Timeout 打开状态的持续时间，默认 60s
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`

	// FailureRatio 触发熔断的失败率，默认 0.6
	FailureRatio float64 `mapstructure:"failure_ratio" yaml:"failure_ratio" json:"failure_ratio"`

	// MinimumRequests 统计失败率前至少需要的请求数，默认 10
	MinimumRequests uint32 `mapstructure:"minimum_requests" yaml:"minimum_requests" json:"minimum_requests"`
}

func (c *Config) setDefaults() {
	if c.MaxRequests == 0 {
		c.MaxRequests = 1
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.FailureRatio == 0 {
		c.FailureRatio = 0.6
	}
	if c.MinimumRequests == 0 {
		c.MinimumRequests = 10
	}
}

func (c *Config) validate() error {
	if c.FailureRatio < 0 || c.FailureRatio > 1 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "breaker: failure_ratio must be in [0, 1], got %v", c.FailureRatio)
	}
	if c.Timeout < 0 || c.Interval < 0 {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "breaker: durations must not be negative")
	}
	return nil
}

// New 创建熔断器，cfg 为 nil 时返回 ErrConfigNil
func New(cfg *Config, opts ...Option) (Breaker, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	c := *cfg
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	m, err := newBreakerMetrics(o.meter)
	if err != nil {
		return nil, xerrors.Wrap(err, "create breaker metrics")
	}

	o.logger.Info("circuit breaker created",
		clog.Int("max_requests", int(c.MaxRequests)),
		clog.Duration("timeout", c.Timeout),
		clog.Float64("failure_ratio", c.FailureRatio),
		clog.Int("minimum_requests", int(c.MinimumRequests)))

	return newBreaker(&c, o.logger, m), nil
}
