package breaker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/sinteflake/metrics"
	"github.com/ceyewan/sinteflake/testkit"
	"github.com/ceyewan/sinteflake/xerrors"
)

var errBackend = errors.New("backend down")

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr error
	}{
		{name: "nil 配置", cfg: nil, wantErr: ErrConfigNil},
		{name: "失败率越界", cfg: &Config{FailureRatio: 1.5}, wantErr: xerrors.ErrInvalidInput},
		{name: "负超时", cfg: &Config{Timeout: -time.Second}, wantErr: xerrors.ErrInvalidInput},
		{name: "默认值", cfg: &Config{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := New(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			impl := b.(*circuitBreaker)
			assert.Equal(t, uint32(1), impl.cfg.MaxRequests)
			assert.Equal(t, 60*time.Second, impl.cfg.Timeout)
			assert.Equal(t, 0.6, impl.cfg.FailureRatio)
			assert.Equal(t, uint32(10), impl.cfg.MinimumRequests)
		})
	}
}

func TestExecuteEmptyKey(t *testing.T) {
	b, err := New(&Config{})
	require.NoError(t, err)

	assert.ErrorIs(t, b.Execute(context.Background(), "", func() error { return nil }), ErrKeyEmpty)
	_, err = b.State("")
	assert.ErrorIs(t, err, ErrKeyEmpty)
}

func TestTripAndRecover(t *testing.T) {
	meter := testkit.NewMeter()
	t.Cleanup(func() { _ = meter.Shutdown(context.Background()) })

	b, err := New(&Config{
		MinimumRequests: 3,
		FailureRatio:    0.5,
		Timeout:         50 * time.Millisecond,
	}, WithLogger(testkit.NewLogger()), WithMeter(meter))
	require.NoError(t, err)
	ctx := context.Background()

	state, err := b.State("redis")
	require.NoError(t, err)
	assert.Equal(t, StateClosed, state)

	for range 3 {
		assert.ErrorIs(t, b.Execute(ctx, "redis", func() error { return errBackend }), errBackend)
	}
	state, _ = b.State("redis")
	require.Equal(t, StateOpen, state)

	called := false
	err = b.Execute(ctx, "redis", func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpenState)
	assert.False(t, called)

	// 不同 key 互不影响
	assert.NoError(t, b.Execute(ctx, "etcd", func() error { return nil }))

	time.Sleep(80 * time.Millisecond)
	require.NoError(t, b.Execute(ctx, "redis", func() error { return nil }))
	state, _ = b.State("redis")
	assert.Equal(t, StateClosed, state)

	w := httptest.NewRecorder()
	metrics.HTTPHandler(meter).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `breaker_rejects_total{key="redis"`)
	assert.Contains(t, body, `breaker_state_changes_total{from_state="closed",key="redis"`)
}

func TestCanceledIsNotFailure(t *testing.T) {
	b, err := New(&Config{MinimumRequests: 1, FailureRatio: 0.1})
	require.NoError(t, err)

	for range 5 {
		_ = b.Execute(context.Background(), "redis", func() error { return context.Canceled })
	}
	state, _ := b.State("redis")
	assert.Equal(t, StateClosed, state)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
