package httpapi

import (
	"github.com/ceyewan/sinteflake/auth"
	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/connector"
	"github.com/ceyewan/sinteflake/metrics"
	"github.com/ceyewan/sinteflake/ratelimit"
)

// Option 服务选项
type Option func(*options)

type options struct {
	logger        clog.Logger
	meter         metrics.Meter
	authenticator auth.Authenticator
	limiter       ratelimit.Limiter
	checks        []connector.Connector
}

func applyOptions(opts []Option) *options {
	o := &options{
		logger: clog.Discard(),
		meter:  metrics.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger 设置 Logger，自动添加 "httpapi" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("httpapi")
		}
	}
}

// WithMeter 设置 Meter，同时用于 RED 指标与 /metrics
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithAuthenticator 启用解码接口，调用方需要持有 decoder 角色
//
// 未设置时不注册 GET /v1/ids/:id。
func WithAuthenticator(a auth.Authenticator) Option {
	return func(o *options) {
		o.authenticator = a
	}
}

// WithLimiter 设置限流器，配合 Config.RateLimit 使用
func WithLimiter(l ratelimit.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// WithHealthCheck 将连接器的健康状态纳入 /healthz
func WithHealthCheck(conns ...connector.Connector) Option {
	return func(o *options) {
		o.checks = append(o.checks, conns...)
	}
}
