package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"serial-novel-api/pkg/logger"
)

// Trace OpenTelemetry 追踪中间件
func Trace(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// TraceContext 注入 trace_id / span_id 到日志 Context 与响应头
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.SpanContext().IsValid() {
			traceID := span.SpanContext().TraceID().String()
			spanID := span.SpanContext().SpanID().String()

			c.Set("trace_id", traceID)
			c.Set("span_id", spanID)

			ctx := logger.WithContext(c.Request.Context(), logger.TraceIDKey, traceID)
			ctx = logger.WithContext(ctx, logger.SpanIDKey, spanID)
			c.Request = c.Request.WithContext(ctx)

			c.Header("X-Trace-ID", traceID)
		}

		c.Next()
	}
}
