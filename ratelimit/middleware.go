package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// KeyFunc 从请求中提取限流键，返回空串时放行
type KeyFunc func(*gin.Context) string

// LimitFunc 返回请求适用的规则，规则无效时放行
type LimitFunc func(*gin.Context) Limit

// CostFunc 返回本次请求要扣减的令牌数
type CostFunc func(*gin.Context) int

// ClientIP 默认的限流键
func ClientIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// GinMiddleware 每个请求扣减 1 个令牌
//
//	r.Use(ratelimit.GinMiddleware(limiter, nil, func(*gin.Context) ratelimit.Limit {
//		return ratelimit.Limit{Rate: 100, Burst: 200}
//	}))
func GinMiddleware(limiter Limiter, keyFunc KeyFunc, limitFunc LimitFunc) gin.HandlerFunc {
	return GinMiddlewareN(limiter, keyFunc, limitFunc, nil)
}

// GinMiddlewareN 每个请求扣减 costFunc 个令牌，keyFunc 为 nil 时按客户端 IP 限流
//
// 被拒绝时返回 429 并设置 X-RateLimit-Limit；限流器出错时放行。
func GinMiddlewareN(limiter Limiter, keyFunc KeyFunc, limitFunc LimitFunc, costFunc CostFunc) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = ClientIP
	}
	return func(c *gin.Context) {
		key := keyFunc(c)
		limit := limitFunc(c)
		if key == "" || !limit.Valid() {
			c.Next()
			return
		}

		cost := 1
		if costFunc != nil {
			if n := costFunc(c); n > 0 {
				cost = n
			}
		}

		allowed, err := limiter.AllowN(c.Request.Context(), key, limit, cost)
		if err != nil {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatFloat(limit.Rate, 'f', -1, 64))
		c.Header("X-RateLimit-Burst", strconv.Itoa(limit.Burst))
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
