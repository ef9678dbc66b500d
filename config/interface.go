// Package config 提供多源配置加载与热更新，基于 Viper 实现。
//
// 优先级（高到低）：
//  1. 环境变量（SINTEFLAKE_IDGEN_NODE_ID 对应 idgen.node_id）
//  2. .env 文件
//  3. 环境特定配置 <name>.<env>.yaml，env 取自 SINTEFLAKE_ENV
//  4. 基础配置 <name>.yaml
//
// 基本使用：
//
//	loader, _ := config.New(&config.Config{Name: "sinteflake"})
//	if err := loader.Load(ctx); err != nil {
//		return err
//	}
//
//	var cfg idgen.Config
//	_ = loader.UnmarshalKey("idgen", &cfg)
//
//	ch, _ := loader.Watch(ctx, "log.level")
//	for event := range ch {
//		fmt.Printf("%s: %v -> %v\n", event.Key, event.OldValue, event.Value)
//	}
package config

import (
	"context"
	"time"
)

// Loader 配置加载器
type Loader interface {
	// Load 读取所有来源并开始监听配置文件变化
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// Unmarshal 将整个配置反序列化到结构体（支持 time.Duration、RFC3339 时间、encoding.TextUnmarshaler）
	Unmarshal(v any) error

	// UnmarshalKey 将指定 Key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// Watch 监听指定 Key 的变化，ctx 取消后通道关闭
	Watch(ctx context.Context, key string) (<-chan Event, error)

	// Validate 验证当前配置
	Validate() error
}

// Event 配置变更事件
type Event struct {
	Key       string
	Value     any
	OldValue  any
	Source    string // "file"
	Timestamp time.Time
}
