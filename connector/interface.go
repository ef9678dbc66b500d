// Package connector 管理 sinteflake 依赖的外部连接（Redis、Etcd）。
//
// 连接器用于 NodeID 分配：idgen.NodeAllocator 借用连接器的客户端完成租约的获取与续期。
//
// 设计约定：
//   - NewXXX() 只创建客户端，不建立连接，Connect() 时才 Ping
//   - Connect() 幂等，可安全重复调用
//   - 谁创建谁释放：组件只借用 Connector，不调用 Close()
//
// 基本使用：
//
//	conn, err := connector.NewRedis(&connector.RedisConfig{Addr: "127.0.0.1:6379"},
//		connector.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	if err := conn.Connect(ctx); err != nil {
//		return err
//	}
package connector

import (
	"context"

	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Connector 所有连接器的通用行为，方法均并发安全
type Connector interface {
	// Connect 建立连接并验证可用性，幂等
	Connect(ctx context.Context) error

	// Close 关闭连接并释放资源，幂等
	Close() error

	// HealthCheck 主动探测连接并刷新 IsHealthy 的缓存结果
	HealthCheck(ctx context.Context) error

	// IsHealthy 返回最近一次探测的结果，不阻塞
	IsHealthy() bool

	// Name 连接实例名称，用于日志与指标
	Name() string
}

// TypedConnector 提供类型安全的客户端访问
type TypedConnector[T any] interface {
	Connector

	// GetClient 返回底层客户端，Close() 之后不应再使用
	GetClient() T
}

// RedisConnector Redis 连接器
type RedisConnector interface {
	TypedConnector[*redis.Client]
}

// EtcdConnector Etcd 连接器
type EtcdConnector interface {
	TypedConnector[*clientv3.Client]
}
