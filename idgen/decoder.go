package idgen

import (
	"time"

	"github.com/ceyewan/sinteflake/xerrors"
)

// decodeFutureTolerance 解码出的时间允许超出当前时钟的范围
const decodeFutureTolerance = time.Hour

// Decoder 在不持有生成器的情况下还原 ID，必须使用与生成端相同的密钥、布局、纪元和分辨率
type Decoder struct {
	layout    Layout
	scrambler *Scrambler
	epoch     time.Time
	clock     Clock
}

// NewDecoder 根据配置创建解码器，NodeID 不参与解码
func NewDecoder(cfg *Config) (*Decoder, error) {
	if cfg == nil {
		return nil, xerrors.WithCode(ErrInvalidConfig, "config_nil")
	}
	c := *cfg
	c.setDefaults()
	if err := c.validate(time.Now()); err != nil {
		return nil, err
	}

	key, _ := ParseKey(c.Key)
	scrambler, err := NewScrambler(key, c.Rounds)
	if err != nil {
		return nil, err
	}
	return &Decoder{
		layout:    c.Layout(),
		scrambler: scrambler,
		epoch:     c.Epoch,
		clock:     newSystemClock(c.Epoch, c.Resolution),
	}, nil
}

// Decode 还原 ID 的 (tick, node, sequence)
//
// 密钥不对时解出的是随机值，这里只能做合理性检查：保留位必须为 0，
// tick 不能明显晚于当前时间。通过检查不代表密钥一定正确。
func (d *Decoder) Decode(id ID) (Parts, error) {
	packed := d.scrambler.Descramble(uint64(id))
	if packed&d.layout.reservedMask() != 0 {
		return Parts{}, xerrors.WithCode(ErrDecodeKeyMismatch, "reserved_bits_set")
	}

	tick, node, seq := d.layout.Unpack(packed)
	resolution := d.clock.Resolution()
	tolerance := uint64(decodeFutureTolerance / resolution)
	if now := d.clock.NowTick(); tick > now && tick-now > tolerance {
		return Parts{}, xerrors.WithCode(ErrDecodeKeyMismatch, "tick_in_future")
	}

	return Parts{
		Hash:     d.layout.UnpackHash(packed),
		Tick:     tick,
		NodeID:   node,
		Sequence: seq,
		Time:     d.epoch.Add(time.Duration(tick) * resolution),
	}, nil
}
