package config

import (
	"strings"

	"github.com/ceyewan/sinteflake/clog"
)

// Config 加载器配置
type Config struct {
	Name      string   // 配置文件名称（不含扩展名），默认 "sinteflake"
	Paths     []string // 搜索路径，默认 [".", "./config"]
	FileType  string   // 文件类型 (yaml, json, toml)，默认 "yaml"
	EnvPrefix string   // 环境变量前缀，默认 "SINTEFLAKE"
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "sinteflake"
	}
	if len(c.Paths) == 0 {
		c.Paths = []string{".", "./config"}
	}
	if c.FileType == "" {
		c.FileType = "yaml"
	}
	if c.EnvPrefix == "" {
		c.EnvPrefix = "SINTEFLAKE"
	}
	c.EnvPrefix = strings.ToUpper(c.EnvPrefix)
}

// Option 加载器选项
type Option func(*options)

type options struct {
	logger clog.Logger
	schema any
}

// WithLogger 注入日志记录器，自动添加 "config" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("config")
		}
	}
}

// WithSchema 注册 schema（通常是应用配置结构体的指针）中的所有 key
//
// 注册后，即使配置文件里没有某个 key，对应的环境变量（如 SINTEFLAKE_IDGEN_KEY）
// 也能被 Get、Unmarshal 读到。
func WithSchema(schema any) Option {
	return func(o *options) {
		o.schema = schema
	}
}

// New 创建配置加载器，cfg 为 nil 时使用默认配置
//
// 创建后需调用 Load 才会读取配置。
func New(cfg *Config, opts ...Option) (Loader, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()

	o := &options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(o)
	}

	return newLoader(cfg, o), nil
}
