package clog

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

type syncer interface {
	Sync() error
}

// loggerImpl Logger 接口的 slog 实现
//
// 同一个 New 派生出的所有子 Logger 共享 handler 和 levelVar。
type loggerImpl struct {
	handler  slog.Handler
	levelVar *slog.LevelVar
	writer   any
	opts     *options
	attrs    []slog.Attr
}

func newLogger(config *Config, opts *options) (Logger, error) {
	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(level.slogLevel())

	handler, w, err := newHandler(config, opts, levelVar)
	if err != nil {
		return nil, err
	}

	return &loggerImpl{
		handler:  handler,
		levelVar: levelVar,
		writer:   w,
		opts:     opts,
	}, nil
}

func (l *loggerImpl) Debug(msg string, fields ...Field) {
	l.log(context.Background(), DebugLevel, msg, fields)
}

func (l *loggerImpl) Info(msg string, fields ...Field) {
	l.log(context.Background(), InfoLevel, msg, fields)
}

func (l *loggerImpl) Warn(msg string, fields ...Field) {
	l.log(context.Background(), WarnLevel, msg, fields)
}

func (l *loggerImpl) Error(msg string, fields ...Field) {
	l.log(context.Background(), ErrorLevel, msg, fields)
}

func (l *loggerImpl) Fatal(msg string, fields ...Field) {
	l.log(context.Background(), FatalLevel, msg, fields)
}

func (l *loggerImpl) DebugContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, DebugLevel, msg, fields)
}

func (l *loggerImpl) InfoContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, InfoLevel, msg, fields)
}

func (l *loggerImpl) WarnContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, WarnLevel, msg, fields)
}

func (l *loggerImpl) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, ErrorLevel, msg, fields)
}

func (l *loggerImpl) FatalContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, FatalLevel, msg, fields)
}

func (l *loggerImpl) With(fields ...Field) Logger {
	child := *l
	child.attrs = append(append([]slog.Attr(nil), l.attrs...), fields...)
	return &child
}

func (l *loggerImpl) WithNamespace(parts ...string) Logger {
	child := *l
	child.opts = l.opts.clone()
	child.opts.namespaceParts = append(child.opts.namespaceParts, parts...)
	return &child
}

func (l *loggerImpl) SetLevel(level Level) error {
	l.levelVar.Set(level.slogLevel())
	return nil
}

func (l *loggerImpl) Flush() {
	if s, ok := l.writer.(syncer); ok {
		_ = s.Sync()
	}
}

func (l *loggerImpl) log(ctx context.Context, level Level, msg string, fields []Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.handler.Enabled(ctx, level.slogLevel()) {
		return
	}

	// skip: runtime.Callers, log, Info/Debug...
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])

	record := slog.NewRecord(time.Now(), level.slogLevel(), msg, pcs[0])
	if len(l.opts.namespaceParts) > 0 {
		record.AddAttrs(slog.String(NamespaceKey, strings.Join(l.opts.namespaceParts, ".")))
	}
	record.AddAttrs(l.attrs...)
	record.AddAttrs(fields...)
	for _, cf := range l.opts.contextFields {
		if v := ctx.Value(cf.Key); v != nil {
			record.AddAttrs(slog.Any(cf.FieldName, v))
		}
	}

	_ = l.handler.Handle(ctx, record)

	if level == FatalLevel {
		l.Flush()
		os.Exit(1)
	}
}
