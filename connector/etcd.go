package connector

import (
	"context"
	"sync"
	"sync/atomic"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/xerrors"
)

type etcdConnector struct {
	cfg     *EtcdConfig
	client  *clientv3.Client
	logger  clog.Logger
	metrics *connectorMetrics

	mu        sync.Mutex
	connected bool
	closed    bool
	healthy   atomic.Bool
}

// NewEtcd 创建 Etcd 连接器
//
// clientv3.New 不会阻塞等待连接，可用性在 Connect 时通过 Status 探测。
func NewEtcd(cfg *EtcdConfig, opts ...Option) (EtcdConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "etcd config is nil")
	}
	c := *cfg
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	m, err := newConnectorMetrics(o.meter, "etcd", c.Name)
	if err != nil {
		return nil, xerrors.Wrap(err, "create connector metrics")
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:            c.Endpoints,
		Username:             c.Username,
		Password:             c.Password,
		DialTimeout:          c.DialTimeout,
		DialKeepAliveTime:    c.KeepAliveTime,
		DialKeepAliveTimeout: c.KeepAliveTimeout,
	})
	if err != nil {
		return nil, xerrors.Wrapf(ErrConnection, "etcd connector[%s]: %v", c.Name, err)
	}

	return &etcdConnector{
		cfg:     &c,
		client:  client,
		logger:  o.logger.With(clog.String("connector", "etcd"), clog.String("name", c.Name)),
		metrics: m,
	}, nil
}

// probe 依次探测各端点，任一成功即视为可用
func (c *etcdConnector) probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	var errs []error
	for _, ep := range c.cfg.Endpoints {
		if _, err := c.client.Status(ctx, ep); err != nil {
			errs = append(errs, err)
			continue
		}
		return nil
	}
	return xerrors.Combine(errs...)
}

func (c *etcdConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return xerrors.Wrapf(ErrClientNil, "etcd connector[%s] is closed", c.cfg.Name)
	}
	if c.connected {
		return nil
	}

	c.logger.Info("attempting to connect to etcd", clog.Any("endpoints", c.cfg.Endpoints))
	err := c.probe(ctx)
	c.metrics.observeConnect(ctx, err)
	if err != nil {
		c.logger.Error("failed to connect to etcd", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "etcd connector[%s]: %v", c.cfg.Name, err)
	}

	c.connected = true
	c.healthy.Store(true)
	c.logger.Info("connected to etcd", clog.Any("endpoints", c.cfg.Endpoints))
	return nil
}

func (c *etcdConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.healthy.Store(false)

	if err := c.client.Close(); err != nil {
		c.logger.Error("failed to close etcd connection", clog.Error(err))
		return err
	}
	c.logger.Info("etcd connection closed")
	return nil
}

func (c *etcdConnector) HealthCheck(ctx context.Context) error {
	err := c.probe(ctx)
	c.healthy.Store(err == nil)
	c.metrics.setHealthy(ctx, err == nil)
	if err != nil {
		c.logger.Warn("etcd health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "etcd connector[%s]: %v", c.cfg.Name, err)
	}
	return nil
}

func (c *etcdConnector) IsHealthy() bool { return c.healthy.Load() }

func (c *etcdConnector) Name() string { return c.cfg.Name }

func (c *etcdConnector) GetClient() *clientv3.Client { return c.client }
