package idgen

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/xerrors"
)

// NodeAllocator NodeID 分配器
//
// 在集群中通过租约为每个进程分配唯一的 NodeID，避免手动配置冲突。
// 分配器不参与 ID 生成，只负责给 Config.NodeID 提供取值。
type NodeAllocator interface {
	// Allocate 分配 NodeID，网络错误会按退避重试，直到成功、耗尽或 ctx 取消
	Allocate(ctx context.Context) (uint64, error)

	// KeepAlive 后台续租，续租失败时从返回的通道发送错误
	//
	// 收到错误后应停止使用该 NodeID 生成 ID，因为其它进程可能已经拿到它。
	KeepAlive(ctx context.Context) <-chan error

	// Stop 停止续租并释放 NodeID，可重复调用
	Stop()
}

// AllocatorConfig NodeID 分配器配置
type AllocatorConfig struct {
	// Driver 后端类型: "static" | "redis" | "etcd"，默认 "static"
	Driver string `mapstructure:"driver" yaml:"driver" json:"driver"`

	// NodeID Driver="static" 时直接使用的 NodeID
	NodeID uint64 `mapstructure:"node_id" yaml:"node_id" json:"node_id"`

	// NodeBits 与生成器一致的节点位宽，可分配范围 [0, 2^NodeBits)，默认 10
	NodeBits uint8 `mapstructure:"node_bits" yaml:"node_bits" json:"node_bits"`

	// KeyPrefix 键前缀，默认 "sinteflake:node"
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix" json:"key_prefix"`

	// TTL 租约 TTL（秒），默认 30
	TTL int `mapstructure:"ttl" yaml:"ttl" json:"ttl"`

	// MaxRetries 网络错误时的最大重试次数，默认 3
	MaxRetries uint64 `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries"`
}

// maxAllocatableBits 限制环形遍历的规模
const maxAllocatableBits = 16

func (c *AllocatorConfig) setDefaults() {
	if c.Driver == "" {
		c.Driver = "static"
	}
	if c.NodeBits == 0 {
		c.NodeBits = DefaultLayout().NodeBits
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "sinteflake:node"
	}
	if c.TTL <= 0 {
		c.TTL = 30
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

func (c *AllocatorConfig) validate() error {
	switch c.Driver {
	case "static", "redis", "etcd":
	default:
		return xerrors.WithCode(xerrors.ErrInvalidInput, "unsupported_driver")
	}
	if c.NodeBits > maxAllocatableBits && c.Driver != "static" {
		return xerrors.WithCode(xerrors.ErrInvalidInput, "node_bits_too_large")
	}
	if c.Driver == "static" && c.NodeID > mask(c.NodeBits) {
		return xerrors.WithCode(xerrors.ErrInvalidInput, "node_id_out_of_range")
	}
	if c.TTL < 3 {
		return xerrors.WithCode(xerrors.ErrInvalidInput, "ttl_too_short")
	}
	return nil
}

// MaxID 可分配的 NodeID 个数
func (c *AllocatorConfig) MaxID() uint64 {
	return mask(c.NodeBits) + 1
}

// NewNodeAllocator 创建 NodeID 分配器
//
// 使用示例:
//
//	allocator, _ := idgen.NewNodeAllocator(&idgen.AllocatorConfig{
//	    Driver:   "redis",
//	    NodeBits: 10,
//	}, idgen.WithRedisConnector(redisConn), idgen.WithLogger(logger))
//
//	nodeID, _ := allocator.Allocate(ctx)
//	defer allocator.Stop()
//
//	go func() {
//	    if err := <-allocator.KeepAlive(ctx); err != nil {
//	        // 停止发号
//	    }
//	}()
func NewNodeAllocator(cfg *AllocatorConfig, opts ...Option) (NodeAllocator, error) {
	if cfg == nil {
		return nil, xerrors.WithCode(xerrors.ErrInvalidInput, "config_nil")
	}
	c := *cfg
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	logger := o.logger.With(clog.String("driver", c.Driver))

	switch c.Driver {
	case "redis":
		if o.redisConnector == nil {
			return nil, xerrors.WithCode(ErrConnectorNil, "redis_connector_required")
		}
		return &redisAllocator{redis: o.redisConnector, cfg: &c, logger: logger, stopCh: make(chan struct{})}, nil

	case "etcd":
		if o.etcdConnector == nil {
			return nil, xerrors.WithCode(ErrConnectorNil, "etcd_connector_required")
		}
		return &etcdAllocator{client: o.etcdConnector.GetClient(), cfg: &c, logger: logger, stopCh: make(chan struct{})}, nil

	default:
		return &staticAllocator{nodeID: c.NodeID, logger: logger, stopCh: make(chan struct{})}, nil
	}
}

// withRetry 对网络错误做指数退避，耗尽错误不重试
func withRetry(ctx context.Context, maxRetries uint64, fn func(ctx context.Context) (uint64, error)) (uint64, error) {
	var id uint64
	backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err == nil {
			id = v
			return nil
		}
		if xerrors.Is(err, ErrNodeIDExhausted) {
			return err
		}
		return retry.RetryableError(err)
	})
	return id, err
}

// holderValue 写入租约的占用者标识，便于排查
func holderValue() string {
	host, _ := os.Hostname()
	return fmt.Sprintf("%s:%d:%d", host, os.Getpid(), time.Now().UnixNano())
}

type staticAllocator struct {
	nodeID   uint64
	logger   clog.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

func (a *staticAllocator) Allocate(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	a.logger.Info("node id assigned statically", clog.Uint64("node_id", a.nodeID))
	return a.nodeID, nil
}

// KeepAlive 静态分配无需续租，通道在 Stop 或 ctx 取消前保持打开
func (a *staticAllocator) KeepAlive(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		select {
		case <-ctx.Done():
		case <-a.stopCh:
		}
	}()
	return errCh
}

func (a *staticAllocator) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
}
