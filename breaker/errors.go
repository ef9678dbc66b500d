package breaker

import "github.com/ceyewan/sinteflake/xerrors"

var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("breaker: config is nil")

	// ErrKeyEmpty 熔断键为空
	ErrKeyEmpty = xerrors.New("breaker: key is empty")

	// ErrOpenState 熔断器打开，调用被拒绝
	ErrOpenState = xerrors.New("breaker: circuit breaker is open")
)
