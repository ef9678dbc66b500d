package idgen

import (
	"fmt"

	"github.com/ceyewan/sinteflake/xerrors"
)

var (
	// ErrInvalidConfig 配置无效，仅在构造阶段返回，不可重试
	ErrInvalidConfig = xerrors.New("idgen: invalid config")

	// ErrClockRegression 检测到时钟回拨
	ErrClockRegression = xerrors.New("idgen: clock moved backwards")

	// ErrTickOverflow 时间戳超出 Layout 的 tick 位宽，当前配置已无法继续生成
	ErrTickOverflow = xerrors.New("idgen: tick overflows layout")

	// ErrDecodeKeyMismatch 解码结果不合理，通常是密钥或布局与生成端不一致
	ErrDecodeKeyMismatch = xerrors.New("idgen: decode key mismatch")

	// ErrConnectorNil 连接器为空
	ErrConnectorNil = xerrors.New("idgen: connector is nil")

	// ErrNodeIDExhausted 没有可用的 NodeID
	ErrNodeIDExhausted = xerrors.New("idgen: no available node id")

	// ErrLeaseExpired Etcd Lease 已过期
	ErrLeaseExpired = xerrors.New("idgen: lease expired")

	// errTickExhausted 当前 tick 的序列号已用完，生成器内部等待下一个 tick
	errTickExhausted = xerrors.New("idgen: tick exhausted")
)

// RegressionError 描述一次时钟回拨
type RegressionError struct {
	Last uint64 // 最近一次分配使用的 tick
	Now  uint64 // 时钟当前返回的 tick
}

func (e *RegressionError) Error() string {
	return fmt.Sprintf("idgen: clock moved backwards by %d ticks (last=%d, now=%d)", e.Drift(), e.Last, e.Now)
}

// Unwrap 使 errors.Is(err, ErrClockRegression) 成立
func (e *RegressionError) Unwrap() error { return ErrClockRegression }

// Drift 回拨的 tick 数
func (e *RegressionError) Drift() uint64 {
	if e.Now >= e.Last {
		return 0
	}
	return e.Last - e.Now
}
