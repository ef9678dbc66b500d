package clog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/sinteflake/xerrors"
)

func newJSONLogger(t *testing.T, level string, opts ...Option) (Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logger, err := New(&Config{Level: level, Format: "json"}, append(opts, WithWriter(buf))...)
	require.NoError(t, err)
	return logger, buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{name: "有效配置", config: &Config{Level: "info", Format: "console", Output: "stdout"}},
		{name: "nil 配置使用默认值", config: nil},
		{name: "空字段使用默认值", config: &Config{}},
		{name: "无效级别", config: &Config{Level: "verbose"}, wantErr: true},
		{name: "无效格式", config: &Config{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config, WithWriter(&bytes.Buffer{}))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestLoggerOutput(t *testing.T) {
	logger, buf := newJSONLogger(t, "info", WithNamespace("sinteflake"))

	logger.Debug("hidden")
	logger.Info("generator created", Uint64("node_id", 5), String("epoch", "2024-07-01"))
	logger.Error("failed", Error(errors.New("boom")))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2, "debug 级别应被过滤")

	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "generator created", lines[0]["msg"])
	assert.Equal(t, "sinteflake", lines[0][NamespaceKey])
	assert.EqualValues(t, 5, lines[0]["node_id"])

	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.Equal(t, "boom", lines[1]["err_msg"])
}

func TestWithAndNamespace(t *testing.T) {
	logger, buf := newJSONLogger(t, "debug", WithNamespace("sinteflake"))

	child := logger.WithNamespace("idgen").With(String("component", "generator"))
	child.Info("child")
	logger.Info("parent")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "sinteflake.idgen", lines[0][NamespaceKey])
	assert.Equal(t, "generator", lines[0]["component"])
	assert.Equal(t, "sinteflake", lines[1][NamespaceKey], "子 Logger 不应影响父 Logger")
	assert.NotContains(t, lines[1], "component")
}

func TestSetLevel(t *testing.T) {
	logger, buf := newJSONLogger(t, "info")
	child := logger.With(String("k", "v"))

	child.Debug("before")
	require.NoError(t, logger.SetLevel(DebugLevel))
	child.Debug("after")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1, "级别调整应对子 Logger 同时生效")
	assert.Equal(t, "after", lines[0]["msg"])
	assert.Equal(t, "DEBUG", lines[0]["level"])
}

type ctxKey string

func TestContextFields(t *testing.T) {
	logger, buf := newJSONLogger(t, "info", WithContextField(ctxKey("request_id"), "request_id"))

	ctx := context.WithValue(context.Background(), ctxKey("request_id"), "req-1")
	logger.InfoContext(ctx, "with ctx")
	logger.Info("without ctx")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "req-1", lines[0]["request_id"])
	assert.NotContains(t, lines[1], "request_id")
}

func TestErrorWithCode(t *testing.T) {
	logger, buf := newJSONLogger(t, "info")

	err := xerrors.WithCode(xerrors.ErrInvalidInput, "node_id_out_of_range")
	logger.Error("invalid", ErrorWithCode(err, ""))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	group, ok := lines[0]["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "node_id_out_of_range", group["code"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"fatal", FatalLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, "fatal", FatalLevel.String())
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.NotPanics(t, func() {
		logger.Info("nothing")
		logger.With(String("a", "b")).WithNamespace("x").Error("nothing")
		assert.NoError(t, logger.SetLevel(DebugLevel))
		logger.Flush()
	})
}
