package idgen

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/sinteflake/xerrors"
)

type pair struct{ tick, seq uint64 }

func TestSequenceAllocator(t *testing.T) {
	t.Run("同一 tick 内递增，tick 前进后归零", func(t *testing.T) {
		clock := NewManualClock(0, 10)
		s := newSequenceAllocator(clock, DefaultLayout())

		_, ok := s.last()
		assert.False(t, ok)

		for want := uint64(0); want < 5; want++ {
			tick, seq, err := s.allocate()
			require.NoError(t, err)
			assert.Equal(t, uint64(10), tick)
			assert.Equal(t, want, seq)
		}

		clock.Advance(3)
		tick, seq, err := s.allocate()
		require.NoError(t, err)
		assert.Equal(t, pair{13, 0}, pair{tick, seq})

		last, ok := s.last()
		assert.True(t, ok)
		assert.Equal(t, uint64(13), last)
	})

	t.Run("序列号耗尽时不分配且状态不变", func(t *testing.T) {
		clock := NewManualClock(0, 7)
		s := newSequenceAllocator(clock, Layout{TickBits: 40, NodeBits: 10, SequenceBits: 2})

		for i := 0; i < 4; i++ {
			_, _, err := s.allocate()
			require.NoError(t, err)
		}
		before := s.state.Load()

		_, _, err := s.allocate()
		assert.ErrorIs(t, err, errTickExhausted)
		assert.Equal(t, before, s.state.Load())

		clock.Advance(1)
		tick, seq, err := s.allocate()
		require.NoError(t, err)
		assert.Equal(t, pair{8, 0}, pair{tick, seq})
	})

	t.Run("时钟回拨返回 RegressionError", func(t *testing.T) {
		clock := NewManualClock(0, 100)
		s := newSequenceAllocator(clock, DefaultLayout())
		_, _, err := s.allocate()
		require.NoError(t, err)
		before := s.state.Load()

		clock.Rewind(1)
		_, _, err = s.allocate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrClockRegression)

		var re *RegressionError
		require.True(t, xerrors.As(err, &re))
		assert.Equal(t, uint64(100), re.Last)
		assert.Equal(t, uint64(99), re.Now)
		assert.Equal(t, uint64(1), re.Drift())
		assert.Equal(t, before, s.state.Load())

		clock.Set(100)
		tick, seq, err := s.allocate()
		require.NoError(t, err)
		assert.Equal(t, pair{100, 1}, pair{tick, seq})
	})

	t.Run("tick 超出位宽", func(t *testing.T) {
		clock := NewManualClock(0, 16)
		s := newSequenceAllocator(clock, Layout{TickBits: 4, NodeBits: 10, SequenceBits: 12})
		_, _, err := s.allocate()
		assert.ErrorIs(t, err, ErrTickOverflow)

		clock.Set(15)
		tick, _, err := s.allocate()
		require.NoError(t, err)
		assert.Equal(t, uint64(15), tick)
	})

	t.Run("tick 为 0 也是合法状态", func(t *testing.T) {
		clock := NewManualClock(0, 0)
		s := newSequenceAllocator(clock, DefaultLayout())
		tick, seq, err := s.allocate()
		require.NoError(t, err)
		assert.Equal(t, pair{0, 0}, pair{tick, seq})
		tick, seq, err = s.allocate()
		require.NoError(t, err)
		assert.Equal(t, pair{0, 1}, pair{tick, seq})
	})
}

func TestSequenceAllocatorOrdering(t *testing.T) {
	clock := NewManualClock(0, 1)
	s := newSequenceAllocator(clock, Layout{TickBits: 40, NodeBits: 10, SequenceBits: 4})

	var prev *pair
	for i := 0; i < 1000; i++ {
		tick, seq, err := s.allocate()
		if xerrors.Is(err, errTickExhausted) || i%7 == 0 {
			clock.Advance(1)
			if err != nil {
				continue
			}
		}
		require.NoError(t, err)

		if prev != nil {
			require.GreaterOrEqual(t, tick, prev.tick)
			if tick == prev.tick {
				require.Greater(t, seq, prev.seq)
			}
		}
		prev = &pair{tick, seq}
	}
}

func TestSequenceAllocatorConcurrent(t *testing.T) {
	const (
		goroutines = 16
		perWorker  = 2000
	)
	clock := NewManualClock(0, 1)
	s := newSequenceAllocator(clock, DefaultLayout())

	var (
		mu    sync.Mutex
		seen  = make(map[pair]struct{}, goroutines*perWorker)
		wg    sync.WaitGroup
		dupes int
	)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]pair, 0, perWorker)
			for len(local) < perWorker {
				tick, seq, err := s.allocate()
				if err != nil {
					clock.Advance(1)
					continue
				}
				local = append(local, pair{tick, seq})
			}
			mu.Lock()
			defer mu.Unlock()
			for _, p := range local {
				if _, ok := seen[p]; ok {
					dupes++
				}
				seen[p] = struct{}{}
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, dupes)
	assert.Len(t, seen, goroutines*perWorker)
}
