package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/sinteflake/breaker"
	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/connector"
	"github.com/ceyewan/sinteflake/xerrors"
)

// tokenBucketScript 以“下一次可放行时间”表示的令牌桶 (GCRA)
//
//	KEYS[1] 桶的键
//	ARGV[1] rate，每秒令牌数
//	ARGV[2] burst，桶容量
//	ARGV[3] now，秒（浮点）
//	ARGV[4] 本次扣减的令牌数
//
// 返回 {allowed, remaining}
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

local interval = 1 / rate
local fill_time = capacity * interval

local tat = tonumber(redis.call("GET", KEYS[1]))
if tat == nil then
  tat = now
end
tat = math.max(tat, now)

local new_tat = tat + requested * interval
local allow_at_most = now + fill_time

if new_tat <= allow_at_most then
  redis.call("SET", KEYS[1], new_tat, "EX", math.ceil(fill_time * 2))
  return {1, math.floor((allow_at_most - new_tat) / interval)}
end
return {0, math.floor((allow_at_most - tat) / interval)}
`

// BreakerKey 分布式限流访问 Redis 时使用的熔断键
const BreakerKey = "ratelimit:redis"

// distributedLimiter 多个进程共享同一个 Redis 令牌桶
type distributedLimiter struct {
	redis   connector.RedisConnector
	prefix  string
	script  *redis.Script
	breaker breaker.Breaker
	logger  clog.Logger
	metrics *limiterMetrics
}

func newDistributed(cfg *Config, conn connector.RedisConnector, brk breaker.Breaker, logger clog.Logger, m *limiterMetrics) *distributedLimiter {
	logger.Info("distributed rate limiter created", clog.String("prefix", cfg.Prefix), clog.Bool("breaker", brk != nil))
	return &distributedLimiter{
		redis:   conn,
		prefix:  cfg.Prefix,
		script:  redis.NewScript(tokenBucketScript),
		breaker: brk,
		logger:  logger,
		metrics: m,
	}
}

// run 执行脚本，配置了熔断器时 Redis 持续失败会直接返回 breaker.ErrOpenState
func (l *distributedLimiter) run(ctx context.Context, client *redis.Client, key string, limit Limit, n int) ([]int64, error) {
	now := float64(time.Now().UnixNano()) / 1e9
	if l.breaker == nil {
		return l.script.Run(ctx, client, []string{l.prefix + key}, limit.Rate, limit.Burst, now, n).Int64Slice()
	}

	var result []int64
	err := l.breaker.Execute(ctx, BreakerKey, func() error {
		var err error
		result, err = l.script.Run(ctx, client, []string{l.prefix + key}, limit.Rate, limit.Burst, now, n).Int64Slice()
		return err
	})
	return result, err
}

func (l *distributedLimiter) Allow(ctx context.Context, key string, limit Limit) (bool, error) {
	return l.AllowN(ctx, key, limit, 1)
}

func (l *distributedLimiter) AllowN(ctx context.Context, key string, limit Limit, n int) (bool, error) {
	if err := checkArgs(key, limit, n); err != nil {
		return false, err
	}
	client := l.redis.GetClient()
	if client == nil {
		return false, xerrors.WithCode(ErrConnectorNil, "redis_client_nil")
	}

	result, err := l.run(ctx, client, key, limit, n)
	if err != nil {
		l.metrics.errors.Inc(ctx, l.metrics.labels...)
		l.logger.ErrorContext(ctx, "token bucket script failed", clog.String("key", key), clog.Error(err))
		return false, xerrors.Wrap(err, "run token bucket script")
	}
	if len(result) != 2 {
		l.metrics.errors.Inc(ctx, l.metrics.labels...)
		return false, xerrors.Wrapf(xerrors.ErrInvalidInput, "unexpected script result %v", result)
	}

	allowed := result[0] == 1
	l.metrics.observe(ctx, allowed)
	l.logger.DebugContext(ctx, "rate limit check",
		clog.String("key", key),
		clog.Bool("allowed", allowed),
		clog.Int64("remaining", result[1]),
		clog.Int("requested", n),
	)
	return allowed, nil
}

// Close 连接由 Connector 的创建者释放
func (l *distributedLimiter) Close() error { return nil }
