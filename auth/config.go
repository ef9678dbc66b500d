package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ceyewan/sinteflake/xerrors"
)

// Config Auth 配置
//
// YAML 示例：
//
//	auth:
//	  secret_key: "${SINTEFLAKE_AUTH_SECRET_KEY}"
//	  issuer: "sinteflake"
//	  access_token_ttl: 15m
type Config struct {
	// SecretKey HMAC 签名密钥，至少 32 字符
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key" json:"-"`

	// SigningMethod HS256 | HS384 | HS512，默认 HS256
	SigningMethod string `mapstructure:"signing_method" yaml:"signing_method" json:"signing_method"`

	// Issuer 签发者，非空时验证 iss
	Issuer string `mapstructure:"issuer" yaml:"issuer" json:"issuer"`

	// Audience 接收者，非空时验证 aud 包含第一个值
	Audience []string `mapstructure:"audience" yaml:"audience" json:"audience"`

	// AccessTokenTTL Token 有效期，默认 15m
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl" yaml:"access_token_ttl" json:"access_token_ttl"`

	// TokenLookup 形如 "header:Authorization" 的单一来源，留空时依次查找 header、query、cookie
	TokenLookup string `mapstructure:"token_lookup" yaml:"token_lookup" json:"token_lookup"`

	// TokenHeadName Header 前缀，默认 Bearer
	TokenHeadName string `mapstructure:"token_head_name" yaml:"token_head_name" json:"token_head_name"`
}

func (c *Config) setDefaults() {
	if c.SigningMethod == "" {
		c.SigningMethod = jwt.SigningMethodHS256.Alg()
	}
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = 15 * time.Minute
	}
	if c.TokenHeadName == "" {
		c.TokenHeadName = "Bearer"
	}
}

func (c *Config) validate() error {
	if len(c.SecretKey) < 32 {
		return xerrors.Wrap(ErrInvalidConfig, "secret_key must be at least 32 characters")
	}
	if _, ok := jwt.GetSigningMethod(c.SigningMethod).(*jwt.SigningMethodHMAC); !ok {
		return xerrors.Wrapf(ErrInvalidConfig, "unsupported signing_method: %s", c.SigningMethod)
	}
	if c.AccessTokenTTL < 0 {
		return xerrors.Wrap(ErrInvalidConfig, "access_token_ttl must be positive")
	}
	if c.TokenLookup != "" && !strings.Contains(c.TokenLookup, ":") {
		return xerrors.Wrapf(ErrInvalidConfig, "token_lookup %q must look like source:key", c.TokenLookup)
	}
	return nil
}
