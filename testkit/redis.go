package testkit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/ceyewan/sinteflake/connector"
)

// NewRedisContainerConfig 使用 testcontainers 创建 Redis 容器并返回配置
// 生命周期由 t.Cleanup 管理
func NewRedisContainerConfig(t *testing.T) *connector.RedisConfig {
	t.Helper()
	requireContainers(t)
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start Redis container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return &connector.RedisConfig{
		Name:        "testcontainer-redis",
		Addr:        fmt.Sprintf("%s:%s", host, mappedPort.Port()),
		PoolSize:    10,
		DialTimeout: 5 * time.Second,
	}
}

// NewRedisContainerConnector 获取已连接的 Redis 连接器（基于 testcontainers）
func NewRedisContainerConnector(t *testing.T) connector.RedisConnector {
	t.Helper()
	cfg := NewRedisContainerConfig(t)
	conn, err := connector.NewRedis(cfg, connector.WithLogger(NewLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.Connect(context.Background()), "failed to connect to redis")
	return conn
}

// NewRedisContainerClient 获取原生 Redis 客户端
func NewRedisContainerClient(t *testing.T) *redis.Client {
	t.Helper()
	return NewRedisContainerConnector(t).GetClient()
}
