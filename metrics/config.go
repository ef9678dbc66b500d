package metrics

// Config 指标系统配置
//
// YAML 示例：
//
//	metrics:
//	  enabled: true
//	  service_name: "sinteflake"
//	  version: "v0.3.0"
//	  port: 9090          # 0 表示不单独监听，由调用方挂载 HTTPHandler
//	  path: "/metrics"
//	  enable_runtime: true
type Config struct {
	// Enabled 为 false 时 New 返回 noop Meter
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// ServiceName 作为 OpenTelemetry Resource 的 service.name
	ServiceName string `mapstructure:"service_name" yaml:"service_name" json:"service_name"`

	// Version 作为 OpenTelemetry Resource 的 service.version
	Version string `mapstructure:"version" yaml:"version" json:"version"`

	// Port 大于 0 时启动独立的 Prometheus HTTP 服务
	Port int `mapstructure:"port" yaml:"port" json:"port"`

	// Path Prometheus 采集路径，必须以 "/" 开头
	Path string `mapstructure:"path" yaml:"path" json:"path"`

	// EnableRuntime 采集 Go 运行时指标（GC、goroutine、内存）
	EnableRuntime bool `mapstructure:"enable_runtime" yaml:"enable_runtime" json:"enable_runtime"`
}

// NewDevDefaultConfig 开发环境配置：启用指标，不单独监听端口
func NewDevDefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     "dev",
		Path:        "/metrics",
	}
}

// NewProdDefaultConfig 生产环境配置：独立端口 9090，并采集运行时指标
func NewProdDefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:       true,
		ServiceName:   serviceName,
		Port:          9090,
		Path:          "/metrics",
		EnableRuntime: true,
	}
}

func (c *Config) setDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "sinteflake"
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
}
