package connector_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/sinteflake/connector"
	"github.com/ceyewan/sinteflake/testkit"
)

func TestRedisConnectorIntegration(t *testing.T) {
	cfg := testkit.NewRedisContainerConfig(t)
	ctx := testkit.NewContext(t, 30*time.Second)

	conn, err := connector.NewRedis(cfg, connector.WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	defer conn.Close()

	t.Run("Connect 幂等", func(t *testing.T) {
		require.NoError(t, conn.Connect(ctx))
		require.NoError(t, conn.Connect(ctx))
		assert.True(t, conn.IsHealthy())
	})

	t.Run("客户端可用", func(t *testing.T) {
		key := "connector:test:" + testkit.NewID()
		client := conn.GetClient()
		require.NoError(t, client.Set(ctx, key, "v", time.Minute).Err())
		val, err := client.Get(ctx, key).Result()
		require.NoError(t, err)
		assert.Equal(t, "v", val)
	})

	t.Run("健康检查", func(t *testing.T) {
		require.NoError(t, conn.HealthCheck(ctx))
		assert.True(t, conn.IsHealthy())
	})

	t.Run("关闭后不健康", func(t *testing.T) {
		require.NoError(t, conn.Close())
		assert.False(t, conn.IsHealthy())
		assert.ErrorIs(t, conn.Connect(context.Background()), connector.ErrClientNil)
	})
}

func TestRedisConnectorTracing(t *testing.T) {
	cfg := testkit.NewRedisContainerConfig(t)
	cfg.EnableTracing = true

	conn, err := connector.NewRedis(cfg)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Connect(testkit.NewContext(t, 10*time.Second)))
}

func TestEtcdConnectorIntegration(t *testing.T) {
	cfg := testkit.NewEtcdContainerConfig(t)
	ctx := testkit.NewContext(t, 30*time.Second)

	conn, err := connector.NewEtcd(cfg, connector.WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Connect(ctx))
	require.NoError(t, conn.Connect(ctx))
	assert.True(t, conn.IsHealthy())

	key := "connector/test/" + testkit.NewID()
	client := conn.GetClient()
	_, err = client.Put(ctx, key, "v")
	require.NoError(t, err)
	resp, err := client.Get(ctx, key)
	require.NoError(t, err)
	require.Len(t, resp.Kvs, 1)
	assert.Equal(t, "v", string(resp.Kvs[0].Value))

	require.NoError(t, conn.HealthCheck(ctx))
}
