package idgen

import (
	"math"
	"time"

	"github.com/ceyewan/sinteflake/xerrors"
)

// Layout 打包值的位布局，从高到低依次为 [reserved][hash][tick][node][sequence]
//
// HashBits 可以为 0；大于 0 时这些位存放调用方数据的带密钥哈希，见 Generator.GenerateWithHash。
type Layout struct {
	HashBits     uint8 `mapstructure:"hash_bits" yaml:"hash_bits" json:"hash_bits,omitempty"`
	TickBits     uint8 `mapstructure:"tick_bits" yaml:"tick_bits" json:"tick_bits"`
	NodeBits     uint8 `mapstructure:"node_bits" yaml:"node_bits" json:"node_bits"`
	SequenceBits uint8 `mapstructure:"sequence_bits" yaml:"sequence_bits" json:"sequence_bits"`
}

// DefaultLayout 42 位 tick（1ms 下约 139 年）、10 位节点、12 位序列号
func DefaultLayout() Layout {
	return Layout{TickBits: 42, NodeBits: 10, SequenceBits: 12}
}

func mask(bits uint8) uint64 {
	if bits >= 64 {
		return math.MaxUint64
	}
	return 1<<bits - 1
}

// MaxTick tick 字段能表示的最大值
func (l Layout) MaxTick() uint64 { return mask(l.TickBits) }

// MaxNodeID node 字段能表示的最大值
func (l Layout) MaxNodeID() uint64 { return mask(l.NodeBits) }

// MaxSequence sequence 字段能表示的最大值
func (l Layout) MaxSequence() uint64 { return mask(l.SequenceBits) }

// MaxHash hash 字段能表示的最大值，HashBits 为 0 时为 0
func (l Layout) MaxHash() uint64 { return mask(l.HashBits) }

// Bits 所有字段的总位宽
func (l Layout) Bits() int {
	return int(l.HashBits) + l.fieldBits()
}

// fieldBits tick、node、sequence 三者的位宽
func (l Layout) fieldBits() int {
	return int(l.TickBits) + int(l.NodeBits) + int(l.SequenceBits)
}

// reservedMask 未被任何字段占用的高位
func (l Layout) reservedMask() uint64 {
	return ^mask(uint8(l.Bits()))
}

// Pack 将三个字段按布局打包，超出位宽的输入会被截断
func (l Layout) Pack(tick, node, seq uint64) uint64 {
	return (tick&l.MaxTick())<<(l.NodeBits+l.SequenceBits) |
		(node&l.MaxNodeID())<<l.SequenceBits |
		seq&l.MaxSequence()
}

// PackHashed 在 Pack 的基础上把 hash 放进 hash 字段
func (l Layout) PackHashed(hash, tick, node, seq uint64) uint64 {
	if l.HashBits == 0 {
		return l.Pack(tick, node, seq)
	}
	return (hash&l.MaxHash())<<l.fieldBits() | l.Pack(tick, node, seq)
}

// UnpackHash 取出 hash 字段
func (l Layout) UnpackHash(v uint64) uint64 {
	if l.HashBits == 0 {
		return 0
	}
	return (v >> l.fieldBits()) & l.MaxHash()
}

// Unpack 是 Pack 的逆运算，忽略 hash 与保留位
func (l Layout) Unpack(v uint64) (tick, node, seq uint64) {
	seq = v & l.MaxSequence()
	node = (v >> l.SequenceBits) & l.MaxNodeID()
	tick = (v >> (l.NodeBits + l.SequenceBits)) & l.MaxTick()
	return tick, node, seq
}

// Horizon 在给定分辨率下 tick 字段能覆盖的时长，溢出时返回 math.MaxInt64
func (l Layout) Horizon(resolution time.Duration) time.Duration {
	if resolution <= 0 {
		return 0
	}
	ticks := l.MaxTick()
	if ticks >= uint64(math.MaxInt64/resolution) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ticks+1) * resolution
}

// validate 每个字段至少 1 位且总和不超过 64
//
// node 至少占 1 位保证 tick+sequence 不超过 63 位，序列分配器的哨兵值因此不会与真实状态冲突。
func (l Layout) validate() error {
	if l.TickBits == 0 || l.NodeBits == 0 || l.SequenceBits == 0 {
		return xerrors.WithCode(ErrInvalidConfig, "bit_width_zero")
	}
	if l.Bits() > 64 {
		return xerrors.WithCode(ErrInvalidConfig, "bit_width_overflow")
	}
	return nil
}
