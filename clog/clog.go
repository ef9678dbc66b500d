// Package clog 为 sinteflake 提供基于 slog 的结构化日志组件。
//
// 特性：
//   - 抽象接口，不暴露底层 slog 实现
//   - 层级命名空间，例如 "sinteflake.idgen"
//   - 从 Context 中提取字段（request_id、trace_id 等）
//   - 运行时动态调整日志级别
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{Level: "info", Format: "json"},
//	    clog.WithNamespace("sinteflake"),
//	)
//	logger.Info("generator created", clog.Uint64("node_id", 5))
package clog

import "github.com/ceyewan/sinteflake/xerrors"

// New 创建一个新的 Logger 实例
//
// config 为 nil 时使用 NewDevDefaultConfig。
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = NewDevDefaultConfig()
	}

	if err := config.validate(); err != nil {
		return nil, xerrors.Wrap(err, "invalid log config")
	}

	return newLogger(config, applyOptions(opts...))
}

// Must 类似 New，但出错时 panic
func Must(config *Config, opts ...Option) Logger {
	return xerrors.Must(New(config, opts...))
}
