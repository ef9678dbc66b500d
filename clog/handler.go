package clog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// NamespaceKey 命名空间在日志中的字段名
const NamespaceKey = "namespace"

// newHandler 构造 writer -> HandlerOptions -> JSON/Text Handler
func newHandler(config *Config, opts *options, levelVar *slog.LevelVar) (slog.Handler, io.Writer, error) {
	w := opts.writer
	if w == nil {
		var err error
		if w, err = resolveWriter(config.Output); err != nil {
			return nil, nil, err
		}
	}

	handlerOpts := &slog.HandlerOptions{
		AddSource:   config.AddSource,
		Level:       levelVar,
		ReplaceAttr: replaceAttr,
	}

	if strings.EqualFold(config.Format, "json") {
		return slog.NewJSONHandler(w, handlerOpts), w, nil
	}
	return slog.NewTextHandler(w, handlerOpts), w, nil
}

func resolveWriter(output string) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		if dir := filepath.Dir(output); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create log dir: %w", err)
			}
		}
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		return f, nil
	}
}

// replaceAttr 统一 level 的大写形式、时间格式和 caller 字段
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.LevelKey:
		level, ok := a.Value.Any().(slog.Level)
		if !ok {
			return a
		}
		if level > slog.LevelError {
			a.Value = slog.StringValue("FATAL")
		} else {
			a.Value = slog.StringValue(level.String())
		}
	case slog.TimeKey:
		if a.Value.Kind() == slog.KindTime {
			a.Value = slog.StringValue(a.Value.Time().Format(TimeFormat))
		}
	case slog.SourceKey:
		if source, ok := a.Value.Any().(*slog.Source); ok && source != nil {
			return slog.String("caller", fmt.Sprintf("%s:%d", trimSourcePath(source.File), source.Line))
		}
	}
	return a
}

// trimSourcePath 只保留 "包目录/文件名"
func trimSourcePath(file string) string {
	dir, name := filepath.Split(file)
	return filepath.Join(filepath.Base(dir), name)
}
