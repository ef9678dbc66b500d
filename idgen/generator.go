package idgen

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/trace"
	"github.com/ceyewan/sinteflake/xerrors"
)

const (
	minPollInterval = 50 * time.Microsecond
	maxPollInterval = 10 * time.Millisecond
)

// Generator 单节点 ID 生成器，并发安全
type Generator struct {
	cfg          Config
	layout       Layout
	clock        Clock
	seq          *sequenceAllocator
	scrambler    *Scrambler
	decoder      *Decoder
	pollInterval time.Duration

	logger  clog.Logger
	tracer  oteltrace.Tracer
	metrics *generatorMetrics
}

// New 创建生成器
//
// cfg 在内部复制，之后修改 cfg 不影响已创建的生成器。
// 配置错误均返回 ErrInvalidConfig，可用 xerrors.GetCode 取得具体原因。
func New(cfg *Config, opts ...Option) (*Generator, error) {
	if cfg == nil {
		return nil, xerrors.WithCode(ErrInvalidConfig, "config_nil")
	}
	c := *cfg
	c.setDefaults()
	if err := c.validate(time.Now()); err != nil {
		return nil, err
	}
	if err := c.validateNode(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	clock := o.clock
	if clock == nil {
		clock = newSystemClock(c.Epoch, c.Resolution)
	} else if clock.Resolution() != c.Resolution {
		return nil, xerrors.WithCode(ErrInvalidConfig, "clock_resolution_mismatch")
	}

	key, _ := ParseKey(c.Key)
	scrambler, err := NewScrambler(key, c.Rounds)
	if err != nil {
		return nil, err
	}

	m, err := newGeneratorMetrics(o.meter, c.NodeID)
	if err != nil {
		return nil, xerrors.Wrap(err, "create idgen metrics")
	}

	layout := c.Layout()
	g := &Generator{
		cfg:          c,
		layout:       layout,
		clock:        clock,
		seq:          newSequenceAllocator(clock, layout),
		scrambler:    scrambler,
		decoder:      &Decoder{layout: layout, scrambler: scrambler, epoch: c.Epoch, clock: clock},
		pollInterval: pollInterval(c.Resolution),
		logger:       o.logger.With(clog.Uint64("node_id", c.NodeID)),
		tracer:       o.tracer,
		metrics:      m,
	}

	g.logger.Info("id generator created",
		clog.Int("tick_bits", int(layout.TickBits)),
		clog.Int("node_bits", int(layout.NodeBits)),
		clog.Int("sequence_bits", int(layout.SequenceBits)),
		clog.Duration("resolution", c.Resolution),
		clog.Duration("horizon", layout.Horizon(c.Resolution)),
		clog.String("regression_policy", string(c.RegressionPolicy)),
	)
	if c.Key == DefaultKey.String() {
		g.logger.Warn("scramble key is the public default key, ids can be descrambled by anyone; set a private key")
	}
	return g, nil
}

// pollInterval 等待下一个 tick 的轮询间隔，取 1/4 tick 并限制在 [50µs, 10ms]
func pollInterval(resolution time.Duration) time.Duration {
	d := resolution / 4
	if d < minPollInterval {
		return minPollInterval
	}
	if d > maxPollInterval {
		return maxPollInterval
	}
	return d
}

// NodeID 返回生成器的节点 ID
func (g *Generator) NodeID() uint64 { return g.cfg.NodeID }

// Layout 返回生成器的位布局
func (g *Generator) Layout() Layout { return g.layout }

// Next 生成一个 ID，必要时阻塞等待下一个 tick
func (g *Generator) Next() (ID, error) {
	return g.Generate(context.Background())
}

// Generate 生成一个 ID
//
// 序列号耗尽时等待下一个 tick；时钟回拨按 RegressionPolicy 处理。等待只挂起当前协程，
// ctx 取消后立即返回，不会留下半分配的状态。
func (g *Generator) Generate(ctx context.Context) (ID, error) {
	return g.generate(ctx, 0)
}

// GenerateWithHash 生成一个 hash 字段为 Hash(data) 的 ID
//
// 同一份 data 总是得到相同的 hash 字段，持有密钥的一方解码后可据此分区或校验来源；
// 唯一性仍由 (tick, node, sequence) 保证。布局没有 hash 位时返回 ErrInvalidInput。
func (g *Generator) GenerateWithHash(ctx context.Context, data []byte) (ID, error) {
	if g.layout.HashBits == 0 {
		return 0, xerrors.WithCode(xerrors.Wrap(xerrors.ErrInvalidInput, "layout has no hash bits"), "hash_bits_zero")
	}
	return g.generate(ctx, g.Hash(data))
}

// Hash 返回 data 的带密钥哈希截断到 hash 字段后的值
func (g *Generator) Hash(data []byte) uint64 {
	return g.scrambler.Hash(data) & g.layout.MaxHash()
}

func (g *Generator) generate(ctx context.Context, hash uint64) (ID, error) {
	tick, seq, err := g.seq.allocate()
	if err != nil {
		tick, seq, err = g.waitAndAllocate(ctx, err)
		if err != nil {
			return 0, err
		}
	}
	g.metrics.generated.Inc(ctx, g.metrics.labels...)
	return ID(g.scrambler.Scramble(g.layout.PackHashed(hash, tick, g.cfg.NodeID, seq))), nil
}

// NextBatch 连续生成 n 个 ID
func (g *Generator) NextBatch(ctx context.Context, n int) ([]ID, error) {
	if n <= 0 {
		return nil, xerrors.Wrapf(xerrors.ErrInvalidInput, "batch size must be positive, got %d", n)
	}

	ctx, span := g.tracer.Start(ctx, trace.SpanGenerateBatch, oteltrace.WithAttributes(
		attribute.Int64(trace.AttrNodeID, int64(g.cfg.NodeID)),
		attribute.Int(trace.AttrBatchSize, n),
	))
	defer span.End()

	ids := make([]ID, 0, n)
	for i := 0; i < n; i++ {
		id, err := g.Generate(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Decode 用生成器自身的密钥和布局还原 ID
func (g *Generator) Decode(id ID) (Parts, error) {
	return g.decoder.Decode(id)
}

// waitAndAllocate 慢路径：按固定间隔轮询直到能够分配
func (g *Generator) waitAndAllocate(ctx context.Context, cause error) (tick, seq uint64, err error) {
	if xerrors.Is(cause, ErrTickOverflow) {
		g.logger.ErrorContext(ctx, "tick overflows layout, generator can no longer issue ids",
			clog.Error(cause),
			clog.Duration("horizon", g.layout.Horizon(g.cfg.Resolution)),
		)
		return 0, 0, cause
	}

	var regression *RegressionError
	if xerrors.As(cause, &regression) {
		g.metrics.regression.Inc(ctx, g.metrics.labels...)
		g.logger.WarnContext(ctx, "clock moved backwards",
			clog.Uint64("last_tick", regression.Last),
			clog.Uint64("now_tick", regression.Now),
			clog.Duration("drift", time.Duration(regression.Drift())*g.cfg.Resolution),
			clog.String("policy", string(g.cfg.RegressionPolicy)),
		)
		if g.cfg.RegressionPolicy == RegressionFail {
			return 0, 0, cause
		}
	} else {
		g.metrics.exhausted.Inc(ctx, g.metrics.labels...)
	}

	ctx, span := g.tracer.Start(ctx, trace.SpanWaitTick, oteltrace.WithAttributes(
		attribute.Int64(trace.AttrNodeID, int64(g.cfg.NodeID)),
		attribute.String(trace.AttrWaitCause, waitCause(cause)),
	))
	defer span.End()

	start := time.Now()
	var regressionSince time.Time
	if regression != nil {
		regressionSince = start
	}

	err = retry.Do(ctx, retry.NewConstant(g.pollInterval), func(ctx context.Context) error {
		t, s, err := g.seq.allocate()
		if err == nil {
			tick, seq = t, s
			return nil
		}
		if xerrors.Is(err, errTickExhausted) {
			return retry.RetryableError(err)
		}
		var re *RegressionError
		if !xerrors.As(err, &re) {
			return err
		}
		if g.cfg.RegressionPolicy == RegressionFail {
			return err
		}
		if regressionSince.IsZero() {
			regressionSince = time.Now()
		}
		if g.cfg.MaxRegressionWait < 0 {
			return retry.RetryableError(err)
		}
		if waited := time.Since(regressionSince); waited > g.cfg.MaxRegressionWait {
			return xerrors.Wrapf(err, "waited %s for clock to catch up (max %s)", waited, g.cfg.MaxRegressionWait)
		}
		return retry.RetryableError(err)
	})
	g.metrics.wait.Record(ctx, time.Since(start).Seconds(), g.metrics.labels...)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, 0, xerrors.Wrap(ctxErr, "idgen: wait for next tick")
		}
		if xerrors.Is(err, ErrClockRegression) {
			g.logger.ErrorContext(ctx, "clock regression not recovered", clog.Error(err))
		}
		return 0, 0, err
	}
	return tick, seq, nil
}

func waitCause(err error) string {
	if xerrors.Is(err, ErrClockRegression) {
		return "clock_regression"
	}
	return "tick_exhausted"
}
