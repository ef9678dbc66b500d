package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
)

// GinHTTPMiddleware 记录 HTTP RED 指标，route 标签使用路由模板（如 /v1/ids/:id）
func GinHTTPMiddleware(httpMetrics *HTTPServerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if httpMetrics == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		done := httpMetrics.start(ctx)
		start := time.Now()
		c.Next()
		done()

		httpMetrics.Observe(ctx, c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
