// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"serial-novel-api/internal/config"
	"serial-novel-api/internal/interfaces/http/handler"
	"serial-novel-api/internal/interfaces/http/middleware"
)

// Handlers 路由依赖的处理器集合
type Handlers struct {
	Health *handler.HealthHandler
	User   *handler.UserHandler
	Novel  *handler.NovelHandler
	Lookup *handler.LookupHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers Handlers
	limiter  middleware.RateLimiter
}

// New 创建新的路由器
func New(cfg *config.Config, handlers Handlers, limiter middleware.RateLimiter) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	r := &Router{
		engine:   engine,
		cfg:      cfg,
		handlers: handlers,
		limiter:  limiter,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	// 基础中间件
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	// CORS 中间件
	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	// 追踪中间件
	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	// 指标中间件
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}

	// 限流中间件
	r.engine.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:           r.cfg.Security.RateLimit.Enabled,
		RequestsPerSecond: r.cfg.Security.RateLimit.RequestsPerSecond,
		Burst:             r.cfg.Security.RateLimit.Burst,
	}, r.limiter))
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	// 系统端点
	r.engine.GET("/health", r.handlers.Health.Health)
	r.engine.GET("/ready", r.handlers.Health.Ready)
	r.engine.GET("/live", r.handlers.Health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		path := r.cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	// API v1 路由组
	v1 := r.engine.Group("/v1")
	{
		// 用户相关路由
		users := v1.Group("/users")
		{
			users.POST("", r.handlers.User.Create)
			users.GET("", r.handlers.User.List)
			users.GET("/:uid", r.handlers.User.Get)
			users.GET("/:uid/novels", r.handlers.Novel.ListByUser)
		}

		// 小说相关路由
		novels := v1.Group("/novels")
		{
			novels.POST("", r.handlers.Novel.Create)
			novels.GET("", r.handlers.Novel.List)
			novels.GET("/:nid", r.handlers.Novel.Get)
			novels.GET("/:nid/updates", r.handlers.Novel.GetUpdates)
			novels.GET("/:nid/chapters", r.handlers.Novel.ListChapters)
			novels.GET("/:nid/contents", r.handlers.Novel.GetContents)
		}

		// 参照表路由
		v1.GET("/genres", r.handlers.Lookup.ListGenres)
		v1.GET("/moods", r.handlers.Lookup.ListMoods)
	}
}
