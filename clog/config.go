package clog

import (
	"strings"

	"github.com/ceyewan/sinteflake/xerrors"
)

// TimeFormat 日志时间格式
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Config 日志配置
//
// YAML 示例：
//
//	log:
//	  level: info
//	  format: json
//	  output: stdout
//	  add_source: true
type Config struct {
	Level     string `mapstructure:"level" yaml:"level" json:"level"`                // debug|info|warn|error|fatal
	Format    string `mapstructure:"format" yaml:"format" json:"format"`             // json|console
	Output    string `mapstructure:"output" yaml:"output" json:"output"`             // stdout|stderr|<file path>
	AddSource bool   `mapstructure:"add_source" yaml:"add_source" json:"add_source"` // 输出 caller 字段
}

// NewDevDefaultConfig 开发环境默认配置：console 格式、debug 级别、带调用位置
func NewDevDefaultConfig() *Config {
	return &Config{
		Level:     "debug",
		Format:    "console",
		Output:    "stdout",
		AddSource: true,
	}
}

// NewProdDefaultConfig 生产环境默认配置：json 格式、info 级别
func NewProdDefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}
}

// validate 填充默认值并校验
func (c *Config) validate() error {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}

	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Format) {
	case "json", "console":
	default:
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "format %q must be json or console", c.Format)
	}
	return nil
}
