package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// CORS 跨域中间件。未配置的维度回退到浏览器轮询所需的最小集合。
func CORS(cfg CORSConfig) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: fallback(cfg.AllowedOrigins, "*"),
		AllowMethods: fallback(cfg.AllowedMethods, "GET", "POST", "OPTIONS"),
		AllowHeaders: fallback(cfg.AllowedHeaders,
			"Origin", "Content-Type", "X-Request-ID", "X-Current-Index"),
		ExposeHeaders:    []string{"X-Request-ID", "X-Trace-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func fallback(values []string, defaults ...string) []string {
	if len(values) > 0 {
		return values
	}
	return defaults
}
