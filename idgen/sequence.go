package idgen

import (
	"math"
	"sync/atomic"

	"github.com/ceyewan/sinteflake/xerrors"
)

// stateUnset 尚未分配过的哨兵值
//
// 状态字为 tick<<seqBits | seq，Layout 保证其不超过 63 位，不可能等于 MaxUint64。
const stateUnset = math.MaxUint64

// sequenceAllocator 无锁的 (tick, sequence) 分配器
//
// 唯一的可变状态是一个原子字，所有分配通过 CAS 推进。
type sequenceAllocator struct {
	clock   Clock
	seqBits uint8
	maxSeq  uint64
	maxTick uint64
	state   atomic.Uint64
}

func newSequenceAllocator(clock Clock, layout Layout) *sequenceAllocator {
	s := &sequenceAllocator{
		clock:   clock,
		seqBits: layout.SequenceBits,
		maxSeq:  layout.MaxSequence(),
		maxTick: layout.MaxTick(),
	}
	s.state.Store(stateUnset)
	return s
}

// allocate 分配一个全新的 (tick, sequence)
//
// 失败时状态保持不变，返回：
//   - errTickExhausted: 当前 tick 的序列号已用完
//   - *RegressionError: 时钟早于上次分配的 tick
//   - ErrTickOverflow: tick 超出位宽
func (s *sequenceAllocator) allocate() (tick, seq uint64, err error) {
	for {
		// 先读状态再读时钟，并发推进不会被误判为回拨
		cur := s.state.Load()
		now := s.clock.NowTick()
		if now > s.maxTick {
			return 0, 0, xerrors.Wrapf(ErrTickOverflow, "tick %d exceeds max %d", now, s.maxTick)
		}

		next := now << s.seqBits
		if cur != stateUnset {
			last, lastSeq := cur>>s.seqBits, cur&s.maxSeq
			switch {
			case now > last:
			case now == last:
				if lastSeq >= s.maxSeq {
					return 0, 0, errTickExhausted
				}
				next = cur + 1
			default:
				return 0, 0, &RegressionError{Last: last, Now: now}
			}
		}

		if s.state.CompareAndSwap(cur, next) {
			return next >> s.seqBits, next & s.maxSeq, nil
		}
	}
}

// last 返回最近一次分配的 tick，尚未分配时 ok 为 false
func (s *sequenceAllocator) last() (tick uint64, ok bool) {
	cur := s.state.Load()
	if cur == stateUnset {
		return 0, false
	}
	return cur >> s.seqBits, true
}
