// Package xerrors 提供 sinteflake 各组件共用的错误处理工具。
//
// 组件在自己的 errors.go 中用 New 定义哨兵错误，经 Wrap/Wrapf 附加上下文后返回，
// 调用方用 Is/As 判断。对外接口（HTTP、CLI）需要稳定分类时用 WithCode 附加错误码。
package xerrors

import (
	"errors"
	"fmt"
)

// 跨组件的通用分类，组件错误包装它们以便上层统一映射
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("unavailable")
)

// 标准库函数再导出，组件只需导入 xerrors
var (
	New    = errors.New
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Wrap 以 "msg: err" 形式包装错误，err 为 nil 时返回 nil
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 同 Wrap，msg 由 format 生成
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// Must 用于进程初始化，err 非 nil 时 panic
func Must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("must: %v", err))
	}
	return v
}
