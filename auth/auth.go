// Package auth 提供基于 JWT 的认证能力。
//
// sinteflake 用它保护解码接口：ID 的内部结构（时间、节点、序列）只对持有
// decoder 角色的调用方开放。支持：
//   - Token 生成、验证与刷新
//   - Gin 中间件集成
//   - 基于角色的访问控制
//   - 多种 Token 提取方式 (Header, Query, Cookie)
//
// 基本使用：
//
//	authenticator, _ := auth.New(&auth.Config{SecretKey: "..."})
//	token, _ := authenticator.GenerateToken(ctx, &auth.Claims{
//	    RegisteredClaims: jwt.RegisteredClaims{Subject: "ops"},
//	    Roles:            []string{"decoder"},
//	})
package auth

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/metrics"
	"github.com/ceyewan/sinteflake/xerrors"
)

// ClaimsKey Gin Context 中保存 Claims 的键
const ClaimsKey = "auth:claims"

// Authenticator 认证器接口
type Authenticator interface {
	// GenerateToken 生成 Token，未设置的 exp/iat/iss/aud 使用配置补齐
	GenerateToken(ctx context.Context, claims *Claims) (string, error)

	// ValidateToken 验证 Token，返回 Claims
	ValidateToken(ctx context.Context, token string) (*Claims, error)

	// RefreshToken 用仍然有效的 Token 换取新的 Token
	RefreshToken(ctx context.Context, token string) (string, error)

	// GinMiddleware 返回 Gin 认证中间件
	GinMiddleware() gin.HandlerFunc
}

type jwtAuth struct {
	cfg     *Config
	logger  clog.Logger
	parser  *jwt.Parser
	metrics *authMetrics
}

// New 创建 Authenticator
func New(cfg *Config, opts ...Option) (Authenticator, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrInvalidConfig, "config is nil")
	}
	c := *cfg
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	m, err := newAuthMetrics(o.meter)
	if err != nil {
		return nil, xerrors.Wrap(err, "create auth metrics")
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.SigningMethod}),
		jwt.WithExpirationRequired(),
	}
	if c.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(c.Issuer))
	}
	if len(c.Audience) > 0 {
		parserOpts = append(parserOpts, jwt.WithAudience(c.Audience[0]))
	}

	return &jwtAuth{
		cfg:     &c,
		logger:  o.logger,
		parser:  jwt.NewParser(parserOpts...),
		metrics: m,
	}, nil
}

func (a *jwtAuth) GenerateToken(ctx context.Context, claims *Claims) (string, error) {
	if claims == nil {
		return "", ErrInvalidClaims
	}

	now := time.Now()
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.cfg.AccessTokenTTL))
	}
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.Issuer == "" {
		claims.Issuer = a.cfg.Issuer
	}
	if len(claims.Audience) == 0 && len(a.cfg.Audience) > 0 {
		claims.Audience = jwt.ClaimStrings(a.cfg.Audience)
	}

	token := jwt.NewWithClaims(jwt.GetSigningMethod(a.cfg.SigningMethod), claims)
	signed, err := token.SignedString([]byte(a.cfg.SecretKey))
	if err != nil {
		return "", xerrors.Wrap(err, "sign token")
	}

	a.metrics.generated.Inc(ctx)
	a.logger.DebugContext(ctx, "token generated",
		clog.String("subject", claims.Subject),
		clog.Any("roles", claims.Roles),
	)
	return signed, nil
}

func (a *jwtAuth) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := a.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(a.cfg.SecretKey), nil
	})
	if err != nil {
		var errType string
		switch {
		case xerrors.Is(err, jwt.ErrTokenExpired):
			errType, err = "expired", xerrors.Wrap(ErrExpiredToken, err.Error())
		case xerrors.Is(err, jwt.ErrTokenSignatureInvalid):
			errType, err = "invalid_signature", xerrors.Wrap(ErrInvalidSignature, err.Error())
		default:
			errType, err = "invalid_token", xerrors.Wrap(ErrInvalidToken, err.Error())
		}
		a.metrics.validated.Inc(ctx,
			metrics.L(LabelStatus, metrics.OutcomeError),
			metrics.L(LabelErrorType, errType),
		)
		a.logger.DebugContext(ctx, "token rejected", clog.String("error_type", errType), clog.Error(err))
		return nil, err
	}

	a.metrics.validated.Inc(ctx, metrics.L(LabelStatus, metrics.OutcomeSuccess))
	return claims, nil
}

func (a *jwtAuth) RefreshToken(ctx context.Context, token string) (string, error) {
	claims, err := a.ValidateToken(ctx, token)
	if err != nil {
		a.metrics.refreshed.Inc(ctx, metrics.L(LabelStatus, metrics.OutcomeError))
		return "", err
	}

	// 重新计算 exp/iat，其余声明保持不变
	claims.ExpiresAt = nil
	claims.IssuedAt = nil
	claims.NotBefore = nil

	newToken, err := a.GenerateToken(ctx, claims)
	if err != nil {
		a.metrics.refreshed.Inc(ctx, metrics.L(LabelStatus, metrics.OutcomeError))
		return "", err
	}

	a.metrics.refreshed.Inc(ctx, metrics.L(LabelStatus, metrics.OutcomeSuccess))
	a.logger.InfoContext(ctx, "token refreshed", clog.String("subject", claims.Subject))
	return newToken, nil
}
