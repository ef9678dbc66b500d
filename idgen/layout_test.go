package idgen

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/sinteflake/xerrors"
)

func TestLayoutPackUnpack(t *testing.T) {
	l := DefaultLayout()

	assert.Equal(t, uint64(1<<22|5<<12|3), l.Pack(1, 5, 3))

	tick, node, seq := l.Unpack(l.Pack(123456789, 1023, 4095))
	assert.Equal(t, uint64(123456789), tick)
	assert.Equal(t, uint64(1023), node)
	assert.Equal(t, uint64(4095), seq)

	t.Run("超出位宽的输入被截断", func(t *testing.T) {
		assert.Equal(t, uint64(0), l.Pack(0, 1024, 0))
		assert.Equal(t, uint64(0), l.Pack(0, 0, 4096))
	})

	t.Run("满 64 位布局下 Pack(Unpack(v)) == v", func(t *testing.T) {
		r := rand.New(rand.NewPCG(1, 2))
		for i := 0; i < 10000; i++ {
			v := r.Uint64()
			assert.Equal(t, v, l.Pack(l.Unpack(v)))
		}
		assert.Equal(t, uint64(math.MaxUint64), l.Pack(l.Unpack(math.MaxUint64)))
	})

	t.Run("有保留位时忽略高位", func(t *testing.T) {
		small := Layout{TickBits: 30, NodeBits: 8, SequenceBits: 8}
		v := uint64(0xFFFF_0000_0000_0001)
		tick, node, seq := small.Unpack(v)
		assert.Equal(t, uint64(1), seq)
		assert.Equal(t, uint64(0), node)
		assert.Equal(t, uint64(0), tick)
		all := ^uint64(0)
		assert.Equal(t, all<<46, small.reservedMask())
	})
}

func TestLayoutHashField(t *testing.T) {
	l := Layout{HashBits: 14, TickBits: 31, NodeBits: 10, SequenceBits: 8}
	require.NoError(t, l.validate())
	assert.Equal(t, 63, l.Bits())
	assert.Equal(t, uint64(1<<14-1), l.MaxHash())

	v := l.PackHashed(0x2abc, 123, 1023, 7)
	assert.Equal(t, uint64(0x2abc), l.UnpackHash(v))
	tick, node, seq := l.Unpack(v)
	assert.Equal(t, []uint64{123, 1023, 7}, []uint64{tick, node, seq})
	assert.Equal(t, uint64(1)<<63, l.reservedMask())
	assert.Zero(t, v&l.reservedMask())

	// hash 超出位宽被截断，不影响其它字段
	assert.Equal(t, l.PackHashed(0x2abc, 1, 2, 3), l.PackHashed(0x2abc|1<<14, 1, 2, 3))

	plain := DefaultLayout()
	assert.Equal(t, plain.Pack(1, 2, 3), plain.PackHashed(0xffff, 1, 2, 3))
	assert.Equal(t, uint64(0), plain.UnpackHash(math.MaxUint64))

	assert.Error(t, Layout{HashBits: 1, TickBits: 42, NodeBits: 10, SequenceBits: 12}.validate())
}

func TestLayoutLimits(t *testing.T) {
	l := DefaultLayout()
	assert.Equal(t, uint64(1<<42-1), l.MaxTick())
	assert.Equal(t, uint64(1023), l.MaxNodeID())
	assert.Equal(t, uint64(4095), l.MaxSequence())
	assert.Equal(t, 64, l.Bits())
	assert.Equal(t, uint64(0), l.reservedMask())
}

func TestLayoutHorizon(t *testing.T) {
	l := DefaultLayout()
	assert.Equal(t, time.Duration(1<<42)*time.Millisecond, l.Horizon(time.Millisecond))
	assert.Greater(t, l.Horizon(time.Millisecond), 130*365*24*time.Hour)

	wide := Layout{TickBits: 62, NodeBits: 1, SequenceBits: 1}
	assert.Equal(t, time.Duration(math.MaxInt64), wide.Horizon(time.Second))

	assert.Equal(t, time.Duration(0), l.Horizon(0))
}

func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
		code   string
	}{
		{name: "默认布局", layout: DefaultLayout()},
		{name: "留有保留位", layout: Layout{TickBits: 41, NodeBits: 10, SequenceBits: 12}},
		{name: "总和超过 64", layout: Layout{TickBits: 43, NodeBits: 10, SequenceBits: 12}, code: "bit_width_overflow"},
		{name: "node 为 0", layout: Layout{TickBits: 52, NodeBits: 0, SequenceBits: 12}, code: "bit_width_zero"},
		{name: "sequence 为 0", layout: Layout{TickBits: 54, NodeBits: 10, SequenceBits: 0}, code: "bit_width_zero"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layout.validate()
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Equal(t, tt.code, xerrors.GetCode(err))
		})
	}
}
