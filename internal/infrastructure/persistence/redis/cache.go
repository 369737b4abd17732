package redis

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"serial-novel-api/internal/application/reading"
)

var cacheTracer = otel.Tracer("redis.cache")

// Cache Read-Through 缓存，singleflight 合并并发回源防止缓存击穿
type Cache struct {
	client *Client
	group  singleflight.Group
}

var _ reading.Cache = (*Cache)(nil)

// NewCache 创建缓存服务
func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

// GetOrLoad 获取缓存值，未命中时单飞回源并写回
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.GetOrLoad",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	val, err := c.client.rdb.Get(ctx, key).Bytes()
	if err == nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return val, nil
	}
	if !IsNil(err) {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Bool("cache.hit", false))

	result, err, shared := c.group.Do(key, func() (interface{}, error) {
		// 再次检查缓存（可能已被其他请求填充）
		val, err := c.client.rdb.Get(ctx, key).Bytes()
		if err == nil {
			return val, nil
		}

		data, err := loader(ctx)
		if err != nil {
			return nil, err
		}

		if err := c.client.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
			// 缓存写入失败不影响返回结果
			span.RecordError(err)
		}
		return data, nil
	})

	span.SetAttributes(attribute.Bool("cache.shared", shared))

	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result.([]byte), nil
}

// Delete 删除缓存
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	ctx, span := cacheTracer.Start(ctx, "cache.Delete",
		trace.WithAttributes(attribute.Int("cache.key_count", len(keys))))
	defer span.End()

	return c.client.rdb.Del(ctx, keys...).Err()
}

// InvalidateNovel 使小说相关缓存失效
func (c *Cache) InvalidateNovel(ctx context.Context, novelID string) error {
	return c.Delete(ctx, fmt.Sprintf("novel:contents:%s", novelID))
}
