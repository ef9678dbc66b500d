package httpapi

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ceyewan/sinteflake/clog"
)

// HeaderRequestID 请求 ID 的 Header
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// RequestIDKey Context 中保存请求 ID 的键，可配合 clog.WithContextField 输出到日志
var RequestIDKey = requestIDKey{}

// RequestIDFromContext 返回请求 ID，不存在时返回空串
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// requestID 沿用客户端传入的请求 ID，否则生成 UUID
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), RequestIDKey, id))
		c.Next()
	}
}

func accessLog(logger clog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []clog.Field{
			clog.String("method", c.Request.Method),
			clog.String("route", c.FullPath()),
			clog.Int("status", c.Writer.Status()),
			clog.Duration("latency", time.Since(start)),
			clog.String("client_ip", c.ClientIP()),
		}
		ctx := c.Request.Context()
		if c.Writer.Status() >= 500 {
			logger.WarnContext(ctx, "request failed", fields...)
			return
		}
		logger.DebugContext(ctx, "request served", fields...)
	}
}
