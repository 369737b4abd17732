package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// RateLimiter 滑动窗口限流器
type RateLimiter struct {
	client *Client
}

// NewRateLimiter 创建限流器
func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow 检查是否允许请求（滑动窗口算法）
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	ctx, span := tracer.Start(ctx, "ratelimit.Allow")
	span.SetAttributes(
		attribute.String("ratelimit.key", key),
		attribute.Int("ratelimit.limit", limit),
		attribute.Int64("ratelimit.window_ms", window.Milliseconds()),
	)
	defer span.End()

	now := time.Now().UnixMilli()
	windowStart := now - window.Milliseconds()

	pipe := l.client.rdb.Pipeline()

	// 移除窗口外的请求
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart))

	// 获取当前窗口内的请求数
	countCmd := pipe.ZCard(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return false, err
	}

	count := countCmd.Val()
	span.SetAttributes(attribute.Int64("ratelimit.current_count", count))

	if count >= int64(limit) {
		span.SetAttributes(attribute.Bool("ratelimit.allowed", false))
		return false, nil
	}

	// 添加当前请求
	l.client.rdb.ZAdd(ctx, key, redis.Z{
		Score:  float64(now),
		Member: fmt.Sprintf("%d", now),
	})
	l.client.rdb.Expire(ctx, key, window*2)

	span.SetAttributes(attribute.Bool("ratelimit.allowed", true))
	return true, nil
}
