package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/xerrors"
)

// viperLoader 基于 viper 的 Loader
type viperLoader struct {
	v      *viper.Viper
	cfg    *Config
	logger clog.Logger
	schema any

	mu     sync.Mutex
	loaded bool
	subs   []*subscription
}

func newLoader(cfg *Config, o *options) *viperLoader {
	return &viperLoader{v: viper.New(), cfg: cfg, logger: o.logger, schema: o.schema}
}

// Load 依次读取 .env、基础配置、环境配置，然后监听配置文件
func (l *viperLoader) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.v.SetConfigName(l.cfg.Name)
	l.v.SetConfigType(l.cfg.FileType)
	for _, p := range l.cfg.Paths {
		l.v.AddConfigPath(p)
	}
	l.v.SetEnvPrefix(l.cfg.EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
	if err := l.bindEnv(); err != nil {
		return err
	}

	if file, ok := l.loadDotEnv(); ok {
		l.logger.Debug("dotenv loaded", clog.String("file", file))
	}

	if err := l.v.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return xerrors.Wrapf(xerrors.ErrInvalidInput, "read config %s: %v", l.cfg.Name, err)
		}
		l.logger.Warn("config file not found", clog.String("name", l.cfg.Name), clog.Any("paths", l.cfg.Paths))
	}
	if err := l.mergeEnvConfig(); err != nil {
		return err
	}
	if err := l.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	l.loaded = true
	for _, s := range l.subs {
		s.last = l.v.Get(s.key)
	}
	l.mu.Unlock()

	if file := l.v.ConfigFileUsed(); file != "" {
		l.v.OnConfigChange(func(fsnotify.Event) {
			if err := l.mergeEnvConfig(); err != nil {
				l.logger.Error("merge env config on reload failed", clog.Error(err))
			}
			l.publish(time.Now())
		})
		l.v.WatchConfig()
		l.logger.Info("config loaded", clog.String("file", file))
	}
	return nil
}

// loadDotEnv 尝试工作目录与各搜索路径下的 .env，已存在的环境变量不会被覆盖
func (l *viperLoader) loadDotEnv() (string, bool) {
	files := []string{".env"}
	for _, p := range l.cfg.Paths {
		files = append(files, filepath.Join(p, ".env"))
	}

	var used string
	for _, f := range files {
		if godotenv.Load(f) == nil && used == "" {
			used = f
		}
	}
	return used, used != ""
}

// mergeEnvConfig 合并 <name>.<env> 文件，env 取自 <PREFIX>_ENV
func (l *viperLoader) mergeEnvConfig() error {
	env := os.Getenv(l.cfg.EnvPrefix + "_ENV")
	if env == "" {
		return nil
	}

	name := l.cfg.Name + "." + env
	l.v.SetConfigName(name)
	defer l.v.SetConfigName(l.cfg.Name)

	if err := l.v.MergeInConfig(); err != nil {
		if isNotFound(err) {
			l.logger.Debug("env config not found", clog.String("env", env))
			return nil
		}
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "merge config %s: %v", name, err)
	}
	l.logger.Info("env config merged", clog.String("env", env))
	return nil
}

func isNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return xerrors.As(err, &nf)
}

func (l *viperLoader) Get(key string) any {
	return l.v.Get(key)
}

func (l *viperLoader) Unmarshal(v any) error {
	if !l.isLoaded() {
		return ErrNotLoaded
	}
	if err := l.v.Unmarshal(v, viper.DecodeHook(decodeHook)); err != nil {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "unmarshal config: %v", err)
	}
	return nil
}

func (l *viperLoader) UnmarshalKey(key string, v any) error {
	if !l.isLoaded() {
		return ErrNotLoaded
	}
	if err := l.v.UnmarshalKey(key, v, viper.DecodeHook(decodeHook)); err != nil {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "unmarshal config %s: %v", key, err)
	}
	return nil
}

// Validate 至少要有一个来源提供了配置
func (l *viperLoader) Validate() error {
	if len(l.v.AllSettings()) == 0 {
		return xerrors.Wrap(ErrValidationFailed, "configuration is empty")
	}
	return nil
}

func (l *viperLoader) isLoaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// decodeHook 支持 "250ms" 时长、逗号分隔切片、RFC3339 时间与 TextUnmarshaler（如 16 字节十六进制密钥）
var decodeHook = mapstructure.ComposeDecodeHookFunc(
	mapstructure.StringToTimeDurationHookFunc(),
	mapstructure.StringToSliceHookFunc(","),
	mapstructure.StringToTimeHookFunc(time.RFC3339),
	mapstructure.TextUnmarshallerHookFunc(),
)
