package connector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/sinteflake/metrics"
)

// TestRedisConfigValidation 测试 Redis 配置校验
func TestRedisConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *RedisConfig
		wantErr     bool
		errContains string
	}{
		{name: "最小配置", cfg: &RedisConfig{Addr: "localhost:6379"}},
		{name: "自定义配置", cfg: &RedisConfig{
			Name:         "custom-redis",
			Addr:         "localhost:6379",
			Password:     "password",
			DB:           1,
			PoolSize:     20,
			MinIdleConns: 5,
		}},
		{name: "地址为空", cfg: &RedisConfig{}, wantErr: true, errContains: "addr is required"},
		{name: "负数 DB", cfg: &RedisConfig{Addr: "localhost:6379", DB: -1}, wantErr: true, errContains: "db must not be negative"},
		{name: "负数空闲连接", cfg: &RedisConfig{Addr: "localhost:6379", MinIdleConns: -1}, wantErr: true, errContains: "min_idle_conns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.setDefaults()
			err := tt.cfg.validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrConfig)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, tt.cfg.Name)
			assert.Greater(t, tt.cfg.PoolSize, 0)
			assert.Equal(t, 5*time.Second, tt.cfg.DialTimeout)
		})
	}
}

// TestEtcdConfigValidation 测试 Etcd 配置校验
func TestEtcdConfigValidation(t *testing.T) {
	cfg := &EtcdConfig{}
	cfg.setDefaults()
	assert.ErrorIs(t, cfg.validate(), ErrConfig)
	assert.Equal(t, "default", cfg.Name)
	assert.Equal(t, 10*time.Second, cfg.KeepAliveTime)
	assert.Equal(t, 3*time.Second, cfg.KeepAliveTimeout)

	cfg.Endpoints = []string{"localhost:2379"}
	assert.NoError(t, cfg.validate())
}

func TestNewWithNilConfig(t *testing.T) {
	_, err := NewRedis(nil)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = NewEtcd(nil)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestNewRedisDoesNotMutateConfig(t *testing.T) {
	cfg := &RedisConfig{Addr: "127.0.0.1:6379"}
	conn, err := NewRedis(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	assert.Empty(t, cfg.Name)
	assert.Equal(t, "default", conn.Name())
	assert.NotNil(t, conn.GetClient())
	assert.False(t, conn.IsHealthy())
}

// TestRedisConnectUnreachable 连接失败时返回 ErrConnection 并记录指标
func TestRedisConnectUnreachable(t *testing.T) {
	meter, err := metrics.New(metrics.NewDevDefaultConfig("connector-test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = meter.Shutdown(context.Background()) })

	conn, err := NewRedis(&RedisConfig{
		Name:        "unreachable",
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
	}, WithMeter(meter))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = conn.Connect(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.False(t, conn.IsHealthy())

	assert.ErrorIs(t, conn.HealthCheck(ctx), ErrHealthCheck)

	w := httptest.NewRecorder()
	metrics.HTTPHandler(meter).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, MetricConnectTotal)
	assert.Contains(t, body, `outcome="error"`)
	assert.Contains(t, body, MetricHealthy)

	// Close 幂等，关闭后不能再 Connect
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.ErrorIs(t, conn.Connect(ctx), ErrClientNil)
}

func TestEtcdConnectUnreachable(t *testing.T) {
	conn, err := NewEtcd(&EtcdConfig{
		Endpoints:   []string{"127.0.0.1:1"},
		DialTimeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = conn.Connect(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.False(t, conn.IsHealthy())

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.ErrorIs(t, conn.Connect(ctx), ErrClientNil)
}
