package breaker

import (
	"context"
	"sync"

	"github.com/sony/gobreaker/v2"

	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/xerrors"
)

type circuitBreaker struct {
	cfg     *Config
	logger  clog.Logger
	metrics *breakerMetrics

	breakers sync.Map // map[string]*gobreaker.CircuitBreaker[struct{}]
}

func newBreaker(cfg *Config, logger clog.Logger, m *breakerMetrics) *circuitBreaker {
	return &circuitBreaker{cfg: cfg, logger: logger, metrics: m}
}

func (cb *circuitBreaker) Execute(ctx context.Context, key string, fn func() error) error {
	if key == "" {
		return ErrKeyEmpty
	}

	_, err := cb.get(key).Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	if err == nil {
		return nil
	}
	if xerrors.Is(err, gobreaker.ErrOpenState) || xerrors.Is(err, gobreaker.ErrTooManyRequests) {
		cb.metrics.rejects.Inc(ctx, cb.metrics.key(key))
		return xerrors.Wrapf(ErrOpenState, "key %s", key)
	}
	return err
}

func (cb *circuitBreaker) State(key string) (State, error) {
	if key == "" {
		return StateClosed, ErrKeyEmpty
	}
	val, ok := cb.breakers.Load(key)
	if !ok {
		return StateClosed, nil
	}
	return fromGobreaker(val.(*gobreaker.CircuitBreaker[struct{}]).State()), nil
}

func (cb *circuitBreaker) get(key string) *gobreaker.CircuitBreaker[struct{}] {
	if val, ok := cb.breakers.Load(key); ok {
		return val.(*gobreaker.CircuitBreaker[struct{}])
	}

	created := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:          key,
		MaxRequests:   cb.cfg.MaxRequests,
		Interval:      cb.cfg.Interval,
		Timeout:       cb.cfg.Timeout,
		ReadyToTrip:   cb.readyToTrip,
		IsSuccessful:  isSuccessful,
		OnStateChange: cb.onStateChange,
	})
	actual, _ := cb.breakers.LoadOrStore(key, created)
	return actual.(*gobreaker.CircuitBreaker[struct{}])
}

func (cb *circuitBreaker) readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < cb.cfg.MinimumRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= cb.cfg.FailureRatio
}

// isSuccessful 调用方取消不算后端故障
func isSuccessful(err error) bool {
	return err == nil || xerrors.Is(err, context.Canceled)
}

func (cb *circuitBreaker) onStateChange(name string, from, to gobreaker.State) {
	cb.logger.Warn("circuit breaker state changed",
		clog.String("key", name),
		clog.String("from", fromGobreaker(from).String()),
		clog.String("to", fromGobreaker(to).String()))
	cb.metrics.stateChanges.Inc(context.Background(),
		cb.metrics.key(name),
		cb.metrics.from(fromGobreaker(from)),
		cb.metrics.to(fromGobreaker(to)))
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}
