package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ceyewan/sinteflake/auth"
	"github.com/ceyewan/sinteflake/breaker"
	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/config"
	"github.com/ceyewan/sinteflake/connector"
	"github.com/ceyewan/sinteflake/httpapi"
	"github.com/ceyewan/sinteflake/idgen"
	"github.com/ceyewan/sinteflake/metrics"
	"github.com/ceyewan/sinteflake/ratelimit"
	"github.com/ceyewan/sinteflake/trace"
	"github.com/ceyewan/sinteflake/xerrors"
)

const serviceName = "sinteflake"

// appConfig 对应 sinteflake.yaml 的顶层结构
//
//	log:       { level: info, format: json }
//	idgen:     { key: "...", regression_policy: wait }
//	allocator: { driver: redis, ttl: 30 }
//	redis:     { addr: "127.0.0.1:6379" }
//	http:      { addr: ":8080", rate_limit: { rate: 50000, burst: 100000 } }
type appConfig struct {
	Log       clog.Config           `mapstructure:"log"`
	Metrics   metrics.Config        `mapstructure:"metrics"`
	Trace     trace.Config          `mapstructure:"trace"`
	IDGen     idgen.Config          `mapstructure:"idgen"`
	Allocator idgen.AllocatorConfig `mapstructure:"allocator"`
	Redis     connector.RedisConfig `mapstructure:"redis"`
	Etcd      connector.EtcdConfig  `mapstructure:"etcd"`
	Auth      auth.Config           `mapstructure:"auth"`
	RateLimit ratelimit.Config      `mapstructure:"ratelimit"`
	Breaker   breaker.Config        `mapstructure:"breaker"`
	HTTP      httpapi.Config        `mapstructure:"http"`
}

func defaultAppConfig() *appConfig {
	return &appConfig{
		Log:     *clog.NewProdDefaultConfig(),
		Metrics: *metrics.NewDevDefaultConfig(serviceName),
		Trace:   *trace.DefaultConfig(serviceName),
		Redis:   connector.RedisConfig{Name: "redis"},
		Etcd:    connector.EtcdConfig{Name: "etcd"},
	}
}

// needsRedis 节点分配或分布式限流使用 Redis
func (c *appConfig) needsRedis() bool {
	return c.Allocator.Driver == "redis" || (c.HTTP.RateLimit.Valid() && c.RateLimit.Driver == "distributed")
}

func (c *appConfig) needsEtcd() bool {
	return c.Allocator.Driver == "etcd"
}

// loadConfig 读取配置文件、.env 与环境变量，三者都为空时使用默认值
func loadConfig(ctx context.Context, cmd *cobra.Command) (*appConfig, config.Loader, error) {
	name, _ := cmd.Flags().GetString("config")
	paths, _ := cmd.Flags().GetStringSlice("config-path")

	loader, err := config.New(&config.Config{Name: name, Paths: paths}, config.WithSchema(&appConfig{}))
	if err != nil {
		return nil, nil, err
	}

	cfg := defaultAppConfig()
	if err := loader.Load(ctx); err != nil {
		if xerrors.Is(err, config.ErrValidationFailed) {
			return cfg, loader, nil
		}
		return nil, nil, err
	}
	if err := loader.Unmarshal(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, loader, nil
}
