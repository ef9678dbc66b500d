package trace

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// GinMiddleware 返回 Gin 跟踪中间件，Span 从全局 TracerProvider 创建
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// Tracer 返回全局 TracerProvider 下的 sinteflake Tracer
func Tracer() oteltrace.Tracer {
	return otel.Tracer(TracerName)
}
