package trace

// Config 链路追踪配置
//
// YAML 示例：
//
//	trace:
//	  enabled: true
//	  service_name: sinteflake
//	  endpoint: localhost:4317
//	  sampler: 0.1
type Config struct {
	// Enabled 为 false 时 Init 只安装本地 TracerProvider，不导出 Span
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	ServiceName string  `mapstructure:"service_name" yaml:"service_name" json:"service_name"`
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	Sampler     float64 `mapstructure:"sampler" yaml:"sampler" json:"sampler"`
	Batcher     string  `mapstructure:"batcher" yaml:"batcher" json:"batcher"` // batch|simple
	Insecure    bool    `mapstructure:"insecure" yaml:"insecure" json:"insecure"`
}

// DefaultConfig 返回默认配置
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Endpoint:    "localhost:4317",
		Sampler:     1.0,
		Batcher:     "batch",
		Insecure:    true,
	}
}
