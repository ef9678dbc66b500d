package idgen

import (
	"time"

	"github.com/ceyewan/sinteflake/xerrors"
)

// RegressionPolicy 时钟回拨处理策略
type RegressionPolicy string

const (
	// RegressionWait 等待时钟追上，最长 MaxRegressionWait
	RegressionWait RegressionPolicy = "wait"
	// RegressionFail 立即返回 ErrClockRegression
	RegressionFail RegressionPolicy = "fail"
)

// UnboundedRegressionWait 作为 MaxRegressionWait 时，wait 策略一直等到时钟追上或 ctx 结束
const UnboundedRegressionWait time.Duration = -1

// DefaultEpoch 默认纪元 2024-07-01T00:00:00Z
var DefaultEpoch = time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

const (
	defaultResolution        = time.Millisecond
	defaultMaxRegressionWait = time.Second
	defaultMinHorizon        = 10 * 365 * 24 * time.Hour
)

// Config 生成器配置，New 之后不再修改
type Config struct {
	// Epoch tick 的起点，默认 DefaultEpoch，不能晚于当前时间
	Epoch time.Time `mapstructure:"epoch" yaml:"epoch" json:"epoch"`

	// Resolution tick 分辨率，默认 1ms
	Resolution time.Duration `mapstructure:"resolution" yaml:"resolution" json:"resolution"`

	// 位宽，三者全为 0 时使用 42/10/12；仅 TickBits 为 0 时取 64 减去其余两者
	TickBits     uint8 `mapstructure:"tick_bits" yaml:"tick_bits" json:"tick_bits"`
	NodeBits     uint8 `mapstructure:"node_bits" yaml:"node_bits" json:"node_bits"`
	SequenceBits uint8 `mapstructure:"sequence_bits" yaml:"sequence_bits" json:"sequence_bits"`

	// HashBits 放在 tick 之上的数据哈希位宽，默认 0；需要同时显式给出其余位宽使总和不超过 64
	HashBits uint8 `mapstructure:"hash_bits" yaml:"hash_bits" json:"hash_bits"`

	// NodeID 节点 ID，范围 [0, 2^NodeBits)
	NodeID uint64 `mapstructure:"node_id" yaml:"node_id" json:"node_id"`

	// Key 32 个十六进制字符的加扰密钥，默认 DefaultKey
	Key string `mapstructure:"key" yaml:"key" json:"-"`

	// Rounds Feistel 轮数，默认 4
	Rounds int `mapstructure:"rounds" yaml:"rounds" json:"rounds"`

	// RegressionPolicy "wait" | "fail"，默认 "wait"
	RegressionPolicy RegressionPolicy `mapstructure:"regression_policy" yaml:"regression_policy" json:"regression_policy"`

	// MaxRegressionWait wait 策略下的最长等待时间，默认 1s，负值表示不限时（见 UnboundedRegressionWait）
	MaxRegressionWait time.Duration `mapstructure:"max_regression_wait" yaml:"max_regression_wait" json:"max_regression_wait"`

	// MinHorizon tick 位宽至少要覆盖的时长，默认 10 年
	MinHorizon time.Duration `mapstructure:"min_horizon" yaml:"min_horizon" json:"min_horizon"`
}

// Layout 返回配置对应的位布局
func (c *Config) Layout() Layout {
	return Layout{HashBits: c.HashBits, TickBits: c.TickBits, NodeBits: c.NodeBits, SequenceBits: c.SequenceBits}
}

func (c *Config) setDefaults() {
	if c.Epoch.IsZero() {
		c.Epoch = DefaultEpoch
	}
	if c.Resolution == 0 {
		c.Resolution = defaultResolution
	}
	if c.TickBits == 0 && c.NodeBits == 0 && c.SequenceBits == 0 {
		l := DefaultLayout()
		c.TickBits, c.NodeBits, c.SequenceBits = l.TickBits, l.NodeBits, l.SequenceBits
	} else if rest := int(c.HashBits) + int(c.NodeBits) + int(c.SequenceBits); c.TickBits == 0 && rest < 64 {
		c.TickBits = uint8(64 - rest)
	}
	if c.Key == "" {
		c.Key = DefaultKey.String()
	}
	if c.Rounds == 0 {
		c.Rounds = DefaultRounds
	}
	if c.RegressionPolicy == "" {
		c.RegressionPolicy = RegressionWait
	}
	if c.MaxRegressionWait == 0 {
		c.MaxRegressionWait = defaultMaxRegressionWait
	}
	if c.MinHorizon == 0 {
		c.MinHorizon = defaultMinHorizon
	}
}

// validate 校验除 NodeID 以外的字段，解码端与生成端共用
func (c *Config) validate(now time.Time) error {
	if c.Resolution < 0 {
		return xerrors.WithCode(ErrInvalidConfig, "invalid_resolution")
	}
	if c.Epoch.After(now) {
		return xerrors.WithCode(ErrInvalidConfig, "epoch_in_future")
	}

	layout := c.Layout()
	if err := layout.validate(); err != nil {
		return err
	}
	if layout.Horizon(c.Resolution) < c.MinHorizon {
		return xerrors.WithCode(ErrInvalidConfig, "horizon_too_short")
	}

	if _, err := ParseKey(c.Key); err != nil {
		return xerrors.WithCode(xerrors.Wrap(ErrInvalidConfig, err.Error()), "invalid_key")
	}
	if c.Rounds < minRounds || c.Rounds > maxRounds {
		return xerrors.WithCode(ErrInvalidConfig, "invalid_rounds")
	}

	switch c.RegressionPolicy {
	case RegressionWait, RegressionFail:
	default:
		return xerrors.WithCode(ErrInvalidConfig, "unknown_regression_policy")
	}
	return nil
}

// validateNode 校验 NodeID 是否落在 NodeBits 范围内
func (c *Config) validateNode() error {
	if c.NodeID > c.Layout().MaxNodeID() {
		return xerrors.WithCode(ErrInvalidConfig, "node_id_out_of_range")
	}
	return nil
}
