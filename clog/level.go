package clog

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/ceyewan/sinteflake/xerrors"
)

// Level 日志级别，数值与 slog.Level 对齐
type Level int

const (
	DebugLevel = Level(slog.LevelDebug)
	InfoLevel  = Level(slog.LevelInfo)
	WarnLevel  = Level(slog.LevelWarn)
	ErrorLevel = Level(slog.LevelError)
	FatalLevel = Level(slog.LevelError + 4)
)

var levelNames = map[Level]string{
	DebugLevel: "debug",
	InfoLevel:  "info",
	WarnLevel:  "warn",
	ErrorLevel: "error",
	FatalLevel: "fatal",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "level(" + strconv.Itoa(int(l)) + ")"
}

func (l Level) slogLevel() slog.Level { return slog.Level(l) }

// ParseLevel 解析级别名，不区分大小写，warning 视为 warn
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "warning" {
		name = "warn"
	}
	for l, n := range levelNames {
		if n == name {
			return l, nil
		}
	}
	return InfoLevel, xerrors.Wrapf(xerrors.ErrInvalidInput, "unknown log level %q", s)
}
