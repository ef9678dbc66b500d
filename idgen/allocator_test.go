package idgen

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/sinteflake/testkit"
	"github.com/ceyewan/sinteflake/xerrors"
)

func TestNewNodeAllocatorValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  *AllocatorConfig
		code string
	}{
		{name: "nil 配置", cfg: nil, code: "config_nil"},
		{name: "未知驱动", cfg: &AllocatorConfig{Driver: "zookeeper"}, code: "unsupported_driver"},
		{name: "静态 NodeID 越界", cfg: &AllocatorConfig{NodeID: 1024}, code: "node_id_out_of_range"},
		{name: "租约驱动位宽过大", cfg: &AllocatorConfig{Driver: "redis", NodeBits: 17}, code: "node_bits_too_large"},
		{name: "TTL 过短", cfg: &AllocatorConfig{Driver: "etcd", TTL: 2}, code: "ttl_too_short"},
		{name: "缺少 Redis 连接器", cfg: &AllocatorConfig{Driver: "redis"}, code: "redis_connector_required"},
		{name: "缺少 Etcd 连接器", cfg: &AllocatorConfig{Driver: "etcd"}, code: "etcd_connector_required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewNodeAllocator(tt.cfg)
			require.Error(t, err)
			assert.Equal(t, tt.code, xerrors.GetCode(err))
		})
	}
}

func TestAllocatorConfigDefaults(t *testing.T) {
	cfg := &AllocatorConfig{}
	cfg.setDefaults()
	assert.Equal(t, "static", cfg.Driver)
	assert.Equal(t, uint8(10), cfg.NodeBits)
	assert.Equal(t, "sinteflake:node", cfg.KeyPrefix)
	assert.Equal(t, 30, cfg.TTL)
	assert.Equal(t, uint64(3), cfg.MaxRetries)
	assert.Equal(t, uint64(1024), cfg.MaxID())
}

func TestStaticAllocator(t *testing.T) {
	allocator, err := NewNodeAllocator(&AllocatorConfig{NodeID: 9}, WithLogger(testkit.NewLogger()))
	require.NoError(t, err)

	id, err := allocator.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(9), id)

	errCh := allocator.KeepAlive(context.Background())
	allocator.Stop()
	allocator.Stop()

	select {
	case err, ok := <-errCh:
		assert.False(t, ok, "unexpected error %v", err)
	case <-time.After(time.Second):
		t.Fatal("keep alive channel not closed after Stop")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = allocator.Allocate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithRetryDoesNotRetryExhaustion(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), 3, func(context.Context) (uint64, error) {
		calls++
		return 0, ErrNodeIDExhausted
	})
	assert.ErrorIs(t, err, ErrNodeIDExhausted)
	assert.Equal(t, 1, calls)

	calls = 0
	id, err := withRetry(context.Background(), 3, func(context.Context) (uint64, error) {
		calls++
		if calls < 3 {
			return 0, xerrors.New("connection refused")
		}
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)
	assert.Equal(t, 3, calls)
}

func TestRedisAllocator(t *testing.T) {
	conn := testkit.NewRedisContainerConnector(t)
	ctx := testkit.NewContext(t, 30*time.Second)
	prefix := "sinteflake:test:" + testkit.NewID()

	newAllocator := func() NodeAllocator {
		a, err := NewNodeAllocator(&AllocatorConfig{
			Driver:    "redis",
			NodeBits:  1,
			KeyPrefix: prefix,
			TTL:       6,
		}, WithRedisConnector(conn), WithLogger(testkit.NewLogger()))
		require.NoError(t, err)
		return a
	}

	first, second, third := newAllocator(), newAllocator(), newAllocator()
	t.Cleanup(func() {
		first.Stop()
		second.Stop()
		third.Stop()
	})

	id1, err := first.Allocate(ctx)
	require.NoError(t, err)
	id2, err := second.Allocate(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	_, err = third.Allocate(ctx)
	assert.ErrorIs(t, err, ErrNodeIDExhausted)

	first.Stop()
	id3, err := third.Allocate(ctx)
	require.NoError(t, err)
	assert.Equal(t, id1, id3)

	t.Run("续租发现被抢占", func(t *testing.T) {
		errCh := second.KeepAlive(ctx)
		key := fmt.Sprintf("%s:%d", prefix, id2)
		require.NoError(t, conn.GetClient().Set(ctx, key, "someone-else", 0).Err())

		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, ErrLeaseExpired)
		case <-time.After(5 * time.Second):
			t.Fatal("keep alive did not detect takeover")
		}
	})
}

func TestEtcdAllocator(t *testing.T) {
	conn := testkit.NewEtcdContainerConnector(t)
	ctx := testkit.NewContext(t, 30*time.Second)
	prefix := "sinteflake/test/" + testkit.NewID()

	newAllocator := func() NodeAllocator {
		a, err := NewNodeAllocator(&AllocatorConfig{
			Driver:    "etcd",
			NodeBits:  1,
			KeyPrefix: prefix,
			TTL:       5,
		}, WithEtcdConnector(conn), WithLogger(testkit.NewLogger()))
		require.NoError(t, err)
		return a
	}

	first, second, third := newAllocator(), newAllocator(), newAllocator()
	t.Cleanup(func() {
		first.Stop()
		second.Stop()
		third.Stop()
	})

	id1, err := first.Allocate(ctx)
	require.NoError(t, err)
	id2, err := second.Allocate(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	_, err = third.Allocate(ctx)
	assert.ErrorIs(t, err, ErrNodeIDExhausted)

	// 撤销 Lease 后 key 随之删除
	first.Stop()
	resp, err := conn.GetClient().Get(ctx, fmt.Sprintf("%s:%d", prefix, id1))
	require.NoError(t, err)
	assert.Zero(t, resp.Count)

	id3, err := third.Allocate(ctx)
	require.NoError(t, err)
	assert.Equal(t, id1, id3)

	t.Run("Lease 被撤销后续租报错", func(t *testing.T) {
		errCh := second.KeepAlive(ctx)
		leaseID := second.(*etcdAllocator).leaseID
		_, err := conn.GetClient().Revoke(ctx, leaseID)
		require.NoError(t, err)

		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, ErrLeaseExpired)
		case <-time.After(10 * time.Second):
			t.Fatal("keep alive did not detect revoked lease")
		}
	})
}
