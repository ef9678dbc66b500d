// Package testkit 为各组件测试提供统一的依赖：日志、指标、唯一 ID，以及基于 testcontainers 的 Redis/Etcd。
//
// 容器类辅助函数在 -short 模式或 Docker 不可用时调用 t.Skip。
package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/metrics"
)

// Kit 包含通用的测试依赖
type Kit struct {
	Ctx    context.Context
	Logger clog.Logger
	Meter  metrics.Meter
}

// NewKit 返回一个包含默认依赖的测试工具包，Meter 在测试结束时关闭
func NewKit(t *testing.T) *Kit {
	t.Helper()
	meter := NewMeter()
	t.Cleanup(func() { _ = meter.Shutdown(context.Background()) })
	return &Kit{
		Ctx:    context.Background(),
		Logger: NewLogger(),
		Meter:  meter,
	}
}

// NewLogger 返回一个用于测试的 logger，只输出 warn 及以上级别
func NewLogger() clog.Logger {
	logger, err := clog.New(&clog.Config{Level: "warn", Format: "console", Output: "stderr"})
	if err != nil {
		return clog.Discard()
	}
	return logger
}

// NewMeter 返回一个用于测试的 meter，每次调用使用独立的 Registry
func NewMeter() metrics.Meter {
	meter, err := metrics.New(metrics.NewDevDefaultConfig("sinteflake-test"))
	if err != nil {
		return metrics.Discard()
	}
	return meter
}

// NewContext 返回一个带有超时的测试上下文，取消函数由 t.Cleanup 调用
func NewContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// NewID 返回一个唯一的测试 ID (UUID v4 前 8 位)，用于生成互不冲突的 Key 前缀
func NewID() string {
	return uuid.New().String()[0:8]
}

// requireContainers 在 -short 模式或 Docker 不可用时跳过测试
func requireContainers(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	skipIfNoDocker(t)
}
