package clog

import "context"

// Logger 日志接口
//
// 支持 Debug、Info、Warn、Error、Fatal 五个级别，每个级别都有带 Context 的版本。
// 带 Context 的版本会按 WithContextField 配置的规则提取字段。
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)
	FatalContext(ctx context.Context, msg string, fields ...Field)

	// With 创建带有预设字段的子 Logger
	With(fields ...Field) Logger

	// WithNamespace 追加命名空间，例如 "sinteflake" + "idgen" -> "sinteflake.idgen"
	WithNamespace(parts ...string) Logger

	// SetLevel 动态调整日志级别，对所有派生的子 Logger 同时生效
	SetLevel(level Level) error

	// Flush 将缓冲的日志同步到输出目标
	Flush()
}
