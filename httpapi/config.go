package httpapi

import (
	"time"

	"github.com/ceyewan/sinteflake/ratelimit"
	"github.com/ceyewan/sinteflake/xerrors"
)

// Config HTTP 服务配置
//
// YAML 示例：
//
//	http:
//	  addr: ":8080"
//	  max_batch: 1000
//	  rate_limit:
//	    rate: 50000   # 每秒可发放的 ID 数
//	    burst: 100000
type Config struct {
	// Addr 监听地址，默认 ":8080"
	Addr string `mapstructure:"addr" yaml:"addr" json:"addr"`

	// ServiceName otelgin 与 RED 指标使用的服务名，默认 "sinteflake"
	ServiceName string `mapstructure:"service_name" yaml:"service_name" json:"service_name"`

	// MaxBatch 单次请求最多生成的 ID 数，默认 1000
	MaxBatch int `mapstructure:"max_batch" yaml:"max_batch" json:"max_batch"`

	// RateLimit 按客户端 IP 的令牌桶，一个 ID 消耗一个令牌；Rate 为 0 时不限流
	RateLimit ratelimit.Limit `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`

	// ReadHeaderTimeout 默认 5s
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout" json:"read_header_timeout"`

	// ShutdownTimeout 优雅退出的最长等待，默认 10s
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ServiceName == "" {
		c.ServiceName = "sinteflake"
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = 1000
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = 5 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

func (c *Config) validate() error {
	if c.RateLimit.Valid() && c.RateLimit.Burst < c.MaxBatch {
		return xerrors.Wrapf(xerrors.ErrInvalidInput,
			"rate_limit.burst (%d) must be at least max_batch (%d)", c.RateLimit.Burst, c.MaxBatch)
	}
	return nil
}
