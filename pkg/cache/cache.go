// Package cache 提供基于键值存储的泛型缓存实现.
//
// 值使用 sonic 序列化，支持 TTL. GetOrSet 对同一个键的并发加载做合并，
// 同一时刻只有一个 getter 在执行.
//
// 基本用法:
//
//	c := cache.NewCache(kvStore)
//	page, err := cache.GetOrSet(ctx, c, "history:42:9f86d081", func() (types.HistoryPage, error) {
//	    return loadPage(ctx)
//	}, 30*time.Second)
//
// 错误处理:
//   - 缓存未命中与值损坏都按未命中处理，由 getter 重新加载
//   - 写回缓存失败不影响返回值
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/singleflight"

	"github.com/yeisme/clipvault/pkg/internal/storage/kv"
	"github.com/yeisme/clipvault/pkg/metrics"
)

// Cache 基于KV存储的缓存实现.
type Cache struct {
	kvStore kv.KVStore
	group   singleflight.Group
}

// NewCache 创建一个新的缓存实例.
func NewCache(kvStore kv.KVStore) *Cache {
	return &Cache{
		kvStore: kvStore,
	}
}

// Get 泛型获取缓存值.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var zero T

	data, err := c.kvStore.Get(ctx, key)
	if err != nil {
		return zero, err
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return value, nil
}

// Set 泛型设置缓存值.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return c.kvStore.Set(ctx, key, data, ttl)
}

// Delete 删除缓存键.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.kvStore.Delete(ctx, key)
}

// Exists 检查缓存键是否存在.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.kvStore.Exists(ctx, key)
}

// GetOrSet 获取缓存值，如果不存在则调用 getter 加载并写回.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, getter func() (T, error), ttl time.Duration) (T, error) {
	var zero T

	if value, err := Get[T](ctx, c, key); err == nil {
		observe("hit")
		return value, nil
	}

	observe("miss")

	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := getter()
		if err != nil {
			return nil, err
		}

		// 写回失败仍返回加载的值
		_ = Set(ctx, c, key, value, ttl)

		return value, nil
	})
	if err != nil {
		return zero, err
	}

	value, _ := v.(T)

	return value, nil
}

// Clear 清空匹配 pattern 的缓存键，pattern 为空时清空全部.
func (c *Cache) Clear(ctx context.Context, pattern string) error {
	if pattern == "" {
		pattern = "*"
	}

	keys, err := c.kvStore.Keys(ctx, pattern)
	if err != nil {
		return err
	}

	for _, key := range keys {
		if delErr := c.kvStore.Delete(ctx, key); delErr != nil {
			return delErr
		}
	}

	return nil
}

func observe(result string) {
	metrics.CacheRequests.WithLabelValues(result).Inc()
}
