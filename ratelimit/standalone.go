package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ceyewan/sinteflake/clog"
)

// bucket 包装 rate.Limiter 并记录最后访问时间
type bucket struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

// standaloneLimiter 单机限流器，每个 (key, rate, burst) 一个令牌桶
type standaloneLimiter struct {
	cfg     *Config
	logger  clog.Logger
	metrics *limiterMetrics

	buckets   sync.Map // map[string]*bucket
	stopCh    chan struct{}
	closeOnce sync.Once
}

func newStandalone(cfg *Config, logger clog.Logger, m *limiterMetrics) *standaloneLimiter {
	l := &standaloneLimiter{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		stopCh:  make(chan struct{}),
	}
	go l.cleanupLoop()

	logger.Info("standalone rate limiter created",
		clog.Duration("cleanup_interval", cfg.CleanupInterval),
		clog.Duration("idle_timeout", cfg.IdleTimeout),
	)
	return l
}

func (l *standaloneLimiter) Allow(ctx context.Context, key string, limit Limit) (bool, error) {
	return l.AllowN(ctx, key, limit, 1)
}

func (l *standaloneLimiter) AllowN(ctx context.Context, key string, limit Limit, n int) (bool, error) {
	if err := checkArgs(key, limit, n); err != nil {
		return false, err
	}

	b := l.bucket(key, limit)
	now := time.Now()
	b.mu.Lock()
	allowed := b.limiter.AllowN(now, n)
	b.lastSeen = now
	b.mu.Unlock()

	l.metrics.observe(ctx, allowed)
	l.logger.DebugContext(ctx, "rate limit check",
		clog.String("key", key),
		clog.Bool("allowed", allowed),
		clog.Float64("rate", limit.Rate),
		clog.Int("burst", limit.Burst),
		clog.Int("requested", n),
	)
	return allowed, nil
}

// bucket 规则变化时使用新的桶，旧桶由清理协程回收
func (l *standaloneLimiter) bucket(key string, limit Limit) *bucket {
	cacheKey := key + "|" + strconv.FormatFloat(limit.Rate, 'g', -1, 64) + "|" + strconv.Itoa(limit.Burst)
	if v, ok := l.buckets.Load(cacheKey); ok {
		return v.(*bucket)
	}
	b := &bucket{
		limiter:  rate.NewLimiter(rate.Limit(limit.Rate), limit.Burst),
		lastSeen: time.Now(),
	}
	actual, _ := l.buckets.LoadOrStore(cacheKey, b)
	return actual.(*bucket)
}

func (l *standaloneLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := l.evictIdle(time.Now()); n > 0 {
				l.logger.Debug("evicted idle buckets", clog.Int("count", n))
			}
		case <-l.stopCh:
			return
		}
	}
}

// evictIdle 删除空闲超过 IdleTimeout 的桶，返回删除数量
func (l *standaloneLimiter) evictIdle(now time.Time) int {
	count := 0
	l.buckets.Range(func(key, value any) bool {
		b := value.(*bucket)
		b.mu.Lock()
		idle := now.Sub(b.lastSeen)
		b.mu.Unlock()
		if idle > l.cfg.IdleTimeout {
			l.buckets.Delete(key)
			count++
		}
		return true
	})
	return count
}

func (l *standaloneLimiter) Close() error {
	l.closeOnce.Do(func() { close(l.stopCh) })
	return nil
}
