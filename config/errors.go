package config

import "github.com/ceyewan/sinteflake/xerrors"

var (
	// ErrValidationFailed 配置验证失败
	ErrValidationFailed = xerrors.New("config: validation failed")

	// ErrNotLoaded Load 之前调用了需要已加载配置的方法
	ErrNotLoaded = xerrors.New("config: not loaded")
)

// IsInvalidInput 检查错误是否为配置格式无效或验证失败
func IsInvalidInput(err error) bool {
	return xerrors.Is(err, xerrors.ErrInvalidInput) || xerrors.Is(err, ErrValidationFailed)
}
