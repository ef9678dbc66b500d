package idgen

import (
	"sync/atomic"
	"time"
)

// Clock 时间源，按固定分辨率返回自 epoch 起经过的 tick 数
//
// 实现必须是并发安全的纯读取操作，回拨检测由序列分配器负责。
type Clock interface {
	NowTick() uint64
	Resolution() time.Duration
}

// systemClock 在创建时读取一次墙上时间，之后只累加单调时钟的流逝量，
// 运行期间的 NTP 校时不会让 tick 倒退
type systemClock struct {
	anchor     time.Time
	offset     time.Duration
	resolution time.Duration
}

func newSystemClock(epoch time.Time, resolution time.Duration) *systemClock {
	now := time.Now()
	return &systemClock{
		anchor:     now,
		offset:     now.Round(0).Sub(epoch),
		resolution: resolution,
	}
}

func (c *systemClock) NowTick() uint64 {
	elapsed := c.offset + time.Since(c.anchor)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / c.resolution)
}

func (c *systemClock) Resolution() time.Duration { return c.resolution }

// ManualClock 手动驱动的时钟，用于测试或需要确定性输出的场景
type ManualClock struct {
	tick       atomic.Uint64
	resolution time.Duration
}

// NewManualClock 创建从 start 开始的手动时钟，resolution <= 0 时使用 1ms
func NewManualClock(resolution time.Duration, start uint64) *ManualClock {
	if resolution <= 0 {
		resolution = time.Millisecond
	}
	c := &ManualClock{resolution: resolution}
	c.tick.Store(start)
	return c
}

func (c *ManualClock) NowTick() uint64 { return c.tick.Load() }

func (c *ManualClock) Resolution() time.Duration { return c.resolution }

// Set 将时钟设置到指定 tick，允许倒退
func (c *ManualClock) Set(tick uint64) { c.tick.Store(tick) }

// Advance 前进 n 个 tick
func (c *ManualClock) Advance(n uint64) { c.tick.Add(n) }

// Rewind 回拨 n 个 tick，最多回到 0
func (c *ManualClock) Rewind(n uint64) {
	for {
		cur := c.tick.Load()
		next := uint64(0)
		if cur > n {
			next = cur - n
		}
		if c.tick.CompareAndSwap(cur, next) {
			return
		}
	}
}
