package idgen

import (
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/connector"
	"github.com/ceyewan/sinteflake/metrics"
	"github.com/ceyewan/sinteflake/trace"
)

// Option 组件初始化选项，Generator 与 NodeAllocator 共用
type Option func(*options)

type options struct {
	logger         clog.Logger
	meter          metrics.Meter
	tracer         oteltrace.Tracer
	clock          Clock
	redisConnector connector.RedisConnector
	etcdConnector  connector.EtcdConnector
}

func applyOptions(opts []Option) *options {
	o := &options{
		logger: clog.Discard(),
		meter:  metrics.Discard(),
		tracer: trace.Tracer(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger 设置 Logger，自动添加 "idgen" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("idgen")
		}
	}
}

// WithMeter 设置 Meter
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithTracer 设置 Tracer，用于批量生成与慢路径等待的 span
func WithTracer(tracer oteltrace.Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithClock 替换时间源，Clock 的分辨率必须与 Config.Resolution 一致
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithRedisConnector 设置 Redis 连接器，NodeAllocator 的 redis 驱动需要
func WithRedisConnector(conn connector.RedisConnector) Option {
	return func(o *options) {
		o.redisConnector = conn
	}
}

// WithEtcdConnector 设置 Etcd 连接器，NodeAllocator 的 etcd 驱动需要
func WithEtcdConnector(conn connector.EtcdConnector) Option {
	return func(o *options) {
		o.etcdConnector = conn
	}
}
