package idgen

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/dchest/siphash"

	"github.com/ceyewan/sinteflake/xerrors"
)

const (
	// DefaultRounds 默认 Feistel 轮数
	DefaultRounds = 4
	minRounds     = 3
	maxRounds     = 8
)

// Key 128 位加扰密钥
type Key [16]byte

// DefaultKey π 的十六进制小数位，仅用于开发环境，生产环境应配置自己的密钥
var DefaultKey = Key{
	0x24, 0x3f, 0x6a, 0x88, 0x85, 0xa3, 0x08, 0xd3,
	0x13, 0x19, 0x8a, 0x2e, 0x03, 0x70, 0x73, 0x44,
}

// ParseKey 解析 32 个十六进制字符表示的密钥
func ParseKey(s string) (Key, error) {
	var k Key
	if len(s) != hex.EncodedLen(len(k)) {
		return k, xerrors.Wrapf(xerrors.ErrInvalidInput, "key must be %d hex characters, got %d", hex.EncodedLen(len(k)), len(s))
	}
	if _, err := hex.Decode(k[:], []byte(s)); err != nil {
		return k, xerrors.Wrapf(xerrors.ErrInvalidInput, "decode key: %v", err)
	}
	return k, nil
}

// String 返回十六进制形式
func (k Key) String() string { return hex.EncodeToString(k[:]) }

// MarshalText 实现 encoding.TextMarshaler
func (k Key) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText 实现 encoding.TextUnmarshaler
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Scrambler 64 位空间上的带密钥置换
//
// 平衡 Feistel 网络：64 位拆成两个 32 位半块，每轮以 SipHash-2-4(key, round||right)
// 的低 32 位异或到左半块后交换。轮函数不可逆，但整个网络对任意轮函数都是双射。
// Scrambler 无状态，可被多个协程共享。
type Scrambler struct {
	k0, k1 uint64
	rounds int
}

// NewScrambler 创建加扰器，rounds 为 0 时使用 DefaultRounds，允许范围 [3, 8]
func NewScrambler(key Key, rounds int) (*Scrambler, error) {
	if rounds == 0 {
		rounds = DefaultRounds
	}
	if rounds < minRounds || rounds > maxRounds {
		return nil, xerrors.WithCode(ErrInvalidConfig, "invalid_rounds")
	}
	return &Scrambler{
		k0:     binary.LittleEndian.Uint64(key[:8]),
		k1:     binary.LittleEndian.Uint64(key[8:]),
		rounds: rounds,
	}, nil
}

func (s *Scrambler) round(i int, half uint32) uint32 {
	var buf [5]byte
	buf[0] = byte(i)
	binary.LittleEndian.PutUint32(buf[1:], half)
	return uint32(siphash.Hash(s.k0, s.k1, buf[:]))
}

// Hash 以同一密钥计算 data 的 SipHash-2-4
func (s *Scrambler) Hash(data []byte) uint64 {
	return siphash.Hash(s.k0, s.k1, data)
}

// Scramble 正向置换
func (s *Scrambler) Scramble(v uint64) uint64 {
	l, r := uint32(v>>32), uint32(v)
	for i := 0; i < s.rounds; i++ {
		l, r = r, l^s.round(i, r)
	}
	return uint64(l)<<32 | uint64(r)
}

// Descramble 逆向置换，Descramble(Scramble(v)) == v
func (s *Scrambler) Descramble(v uint64) uint64 {
	l, r := uint32(v>>32), uint32(v)
	for i := s.rounds - 1; i >= 0; i-- {
		l, r = r^s.round(i, l), l
	}
	return uint64(l)<<32 | uint64(r)
}
