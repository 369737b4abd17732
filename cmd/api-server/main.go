// Package main 连载小说生成服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"serial-novel-api/internal/application/generation"
	"serial-novel-api/internal/application/reading"
	"serial-novel-api/internal/config"
	"serial-novel-api/internal/infrastructure/llm"
	"serial-novel-api/internal/infrastructure/persistence/postgres"
	"serial-novel-api/internal/infrastructure/persistence/redis"
	"serial-novel-api/internal/interfaces/http/handler"
	"serial-novel-api/internal/interfaces/http/middleware"
	"serial-novel-api/internal/interfaces/http/router"
	"serial-novel-api/pkg/logger"
	"serial-novel-api/pkg/tracer"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件（如果存在）
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting api-server",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	// 初始化追踪
	shutdownTracer, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracer(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// 初始化 Postgres
	pg, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		log.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := pg.Close(); err != nil {
			log.Error("failed to close postgres", "error", err)
		}
	}()

	if err := pg.Migrate(); err != nil {
		log.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	// 初始化 Redis（可选，失败仅降级缓存与限流）
	var redisClient *redis.Client
	if rc, err := redis.NewClient(&cfg.Cache.Redis); err != nil {
		log.Warn("redis unavailable, cache and rate limit disabled", "error", err)
	} else {
		redisClient = rc
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("failed to close redis", "error", err)
			}
		}()
	}

	// 仓储
	novelRepo := postgres.NewNovelRepository(pg)
	txManager := postgres.NewTxManager(pg)
	chapterRepo := postgres.NewChapterRepository(pg, txManager)
	userRepo := postgres.NewUserRepository(pg)
	lookupRepo := postgres.NewLookupRepository(pg)

	// 补种体裁/氛围参照数据
	if err := lookupRepo.SeedDefaults(ctx); err != nil {
		log.Error("failed to seed lookup tables", "error", err)
		os.Exit(1)
	}

	// LLM 客户端
	llmFactory := llm.NewFactory(cfg)
	llmClient := llm.NewClient(llmFactory, cfg.LLM.DefaultProvider)

	// 生成侧服务
	runner := generation.NewRunner(
		novelRepo,
		chapterRepo,
		llmClient,
		generation.RetryPolicyFromConfig(cfg.Generation.Retry),
		planPolicyFromConfig(cfg),
		contextBuilderFromConfig(cfg),
	)
	manager := generation.NewManager(runner)
	genSvc := generation.NewService(novelRepo, userRepo, lookupRepo, manager, cfg.Server.HTTP.FirstChapterTimeout)

	// 阅读侧服务
	var cache reading.Cache
	var limiter middleware.RateLimiter
	if redisClient != nil {
		cache = redis.NewCache(redisClient)
		limiter = redis.NewRateLimiter(redisClient)
	}
	readSvc := reading.NewService(novelRepo, chapterRepo, cache)

	// 恢复被中断的生成任务
	if err := genSvc.ResumeInterrupted(ctx); err != nil {
		log.Error("failed to resume interrupted generations", "error", err)
	}

	// HTTP 路由
	r := router.New(cfg, router.Handlers{
		Health: handler.NewHealthHandler(pg, redisClient),
		User:   handler.NewUserHandler(userRepo),
		Novel:  handler.NewNovelHandler(genSvc, readSvc),
		Lookup: handler.NewLookupHandler(lookupRepo),
	}, limiter)

	// 创建 HTTP 服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	// 启动服务器
	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// 优雅关闭：先停止接收流量，再停止后台生成
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	if err := genSvc.Shutdown(shutdownCtx); err != nil {
		log.Error("generation shutdown incomplete", "error", err)
	}

	log.Info("server exited")
}

func planPolicyFromConfig(cfg *config.Config) generation.PlanPolicy {
	p := generation.DefaultPlanPolicy()
	if cfg.Generation.SingleChapterThreshold > 0 {
		p.SingleChapterThreshold = cfg.Generation.SingleChapterThreshold
	}
	if cfg.Generation.ChapterTargetRunes > 0 {
		p.ChapterTargetRunes = cfg.Generation.ChapterTargetRunes
	}
	return p
}

func contextBuilderFromConfig(cfg *config.Config) generation.ContextBuilder {
	b := generation.DefaultContextBuilder()
	if cfg.Generation.ContextWindowRunes > 0 {
		b.WindowRunes = cfg.Generation.ContextWindowRunes
	}
	return b
}
