package metrics

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/sinteflake/clog"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		opts    []Option
		wantErr bool
	}{
		{name: "nil 配置", cfg: nil, wantErr: true},
		{name: "未启用返回 noop", cfg: &Config{Enabled: false}},
		{name: "最小配置", cfg: &Config{Enabled: true, ServiceName: "test"}},
		{name: "启用运行时指标", cfg: &Config{Enabled: true, ServiceName: "test", EnableRuntime: true}},
		{name: "非法路径", cfg: &Config{Enabled: true, Path: "metrics"}, wantErr: true},
		{
			name: "带 logger",
			cfg:  NewDevDefaultConfig("test"),
			opts: []Option{WithLogger(clog.Must(&clog.Config{Level: "debug"}, clog.WithWriter(&bytes.Buffer{})))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meter, err := New(tt.cfg, tt.opts...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, meter)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			assert.NoError(t, meter.Shutdown(ctx))
		})
	}
}

func TestMeterExposesPrometheus(t *testing.T) {
	meter, err := New(NewDevDefaultConfig("sinteflake-test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = meter.Shutdown(context.Background()) })

	ctx := context.Background()
	counter, err := meter.Counter("test_generated_total", "generated")
	require.NoError(t, err)
	counter.Inc(ctx, L(LabelNodeID, "5"))
	counter.Add(ctx, 4, L(LabelNodeID, "5"))
	counter.Add(ctx, -3, L(LabelNodeID, "5"))

	gauge, err := meter.Gauge("test_active", "active")
	require.NoError(t, err)
	gauge.Inc(ctx)
	gauge.Inc(ctx)
	gauge.Dec(ctx)

	hist, err := meter.Histogram("test_wait_seconds", "wait", WithUnit("s"), WithBuckets([]float64{0.001, 0.01}))
	require.NoError(t, err)
	hist.Record(ctx, 0.005)

	w := httptest.NewRecorder()
	HTTPHandler(meter).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `test_generated_total{node_id="5"`)
	assert.Contains(t, body, "test_active")
	assert.Contains(t, body, "test_wait_seconds_bucket")
}

func TestDiscard(t *testing.T) {
	meter := Discard()
	ctx := context.Background()

	counter, err := meter.Counter("c", "c")
	require.NoError(t, err)
	gauge, err := meter.Gauge("g", "g")
	require.NoError(t, err)
	hist, err := meter.Histogram("h", "h")
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		counter.Inc(ctx)
		counter.Add(ctx, 2)
		gauge.Set(ctx, 1)
		hist.Record(ctx, 1)
	})
	assert.NoError(t, meter.Shutdown(ctx))

	w := httptest.NewRecorder()
	HTTPHandler(meter).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTPStatusClassAndOutcome(t *testing.T) {
	tests := []struct {
		status  int
		class   string
		outcome string
	}{
		{200, "2xx", OutcomeSuccess},
		{302, "3xx", OutcomeSuccess},
		{429, "4xx", OutcomeError},
		{503, "5xx", OutcomeError},
		{42, "unknown", OutcomeError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.class, HTTPStatusClass(tt.status))
		assert.Equal(t, tt.outcome, HTTPOutcome(tt.status))
	}
}

func TestLabelKey(t *testing.T) {
	assert.Equal(t, "", labelKey(nil))
	assert.Equal(t, "a=1|b=2", labelKey([]Label{L("a", "1"), L("b", "2")}))
}
