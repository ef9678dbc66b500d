package connector

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"

	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/xerrors"
)

type redisConnector struct {
	cfg     *RedisConfig
	client  *redis.Client
	logger  clog.Logger
	metrics *connectorMetrics

	mu        sync.Mutex
	connected bool
	closed    bool
	healthy   atomic.Bool
}

// NewRedis 创建 Redis 连接器，此时不会建立连接
func NewRedis(cfg *RedisConfig, opts ...Option) (RedisConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "redis config is nil")
	}
	c := *cfg
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	m, err := newConnectorMetrics(o.meter, "redis", c.Name)
	if err != nil {
		return nil, xerrors.Wrap(err, "create connector metrics")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	})

	if c.EnableTracing {
		if err := redisotel.InstrumentTracing(client); err != nil {
			_ = client.Close()
			return nil, xerrors.Wrap(err, "instrument redis tracing")
		}
	}

	return &redisConnector{
		cfg:     &c,
		client:  client,
		logger:  o.logger.With(clog.String("connector", "redis"), clog.String("name", c.Name)),
		metrics: m,
	}, nil
}

func (c *redisConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return xerrors.Wrapf(ErrClientNil, "redis connector[%s] is closed", c.cfg.Name)
	}
	if c.connected {
		return nil
	}

	c.logger.Info("attempting to connect to redis", clog.String("addr", c.cfg.Addr))
	err := c.client.Ping(ctx).Err()
	c.metrics.observeConnect(ctx, err)
	if err != nil {
		c.logger.Error("failed to connect to redis", clog.Error(err), clog.String("addr", c.cfg.Addr))
		return xerrors.Wrapf(ErrConnection, "redis connector[%s]: %v", c.cfg.Name, err)
	}

	c.connected = true
	c.healthy.Store(true)
	c.logger.Info("connected to redis", clog.String("addr", c.cfg.Addr))
	return nil
}

func (c *redisConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.healthy.Store(false)

	if err := c.client.Close(); err != nil {
		c.logger.Error("failed to close redis connection", clog.Error(err))
		return err
	}
	c.logger.Info("redis connection closed")
	return nil
}

func (c *redisConnector) HealthCheck(ctx context.Context) error {
	err := c.client.Ping(ctx).Err()
	c.healthy.Store(err == nil)
	c.metrics.setHealthy(ctx, err == nil)
	if err != nil {
		c.logger.Warn("redis health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "redis connector[%s]: %v", c.cfg.Name, err)
	}
	return nil
}

func (c *redisConnector) IsHealthy() bool { return c.healthy.Load() }

func (c *redisConnector) Name() string { return c.cfg.Name }

func (c *redisConnector) GetClient() *redis.Client { return c.client }
