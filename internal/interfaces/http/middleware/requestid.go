package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"serial-novel-api/pkg/logger"
)

const (
	// RequestIDHeader 请求 ID 头
	RequestIDHeader = "X-Request-ID"
)

// RequestID 请求 ID 注入中间件
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)

		ctx := logger.WithContext(c.Request.Context(), logger.RequestIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}
