// Package cache 提供基于键值存储的泛型缓存实现.
//
// 值使用 sonic 序列化，支持 TTL. 同一进程内对同一键的并发回源通过
// singleflight 合并为一次. 缓存为 nil 时所有操作退化为直接回源，便于在
// 未启用 KV 的部署中复用同一套代码.
//
// 基本用法:
//
//	c := cache.NewCache(kvStore, "stats")
//
//	stats, err := cache.GetOrSet(ctx, c, "trash.all", func() (types.TrashStats, error) {
//	    return computeStats(ctx)
//	}, 30*time.Second)
//
//	// 数据变更后失效
//	_ = c.Delete(ctx, "trash.all")
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/singleflight"

	"github.com/yeisme/postvault/pkg/internal/storage/kv"
	nlog "github.com/yeisme/postvault/pkg/log"
)

// ErrMiss 缓存未命中.
var ErrMiss = errors.New("cache miss")

// Cache 基于KV存储的缓存实现.
type Cache struct {
	kvStore   kv.KVStore
	namespace string
	group     singleflight.Group
}

// NewCache 创建缓存实例，namespace 作为所有键的前缀（以 "." 连接）.
func NewCache(kvStore kv.KVStore, namespace string) *Cache {
	if kvStore == nil {
		return nil
	}

	return &Cache{
		kvStore:   kvStore,
		namespace: namespace,
	}
}

func (c *Cache) key(k string) string {
	if c.namespace == "" {
		return k
	}

	return c.namespace + "." + k
}

// Get 泛型获取缓存值，未命中返回 ErrMiss.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var zero T

	if c == nil {
		return zero, ErrMiss
	}

	data, err := c.kvStore.Get(ctx, c.key(key))
	if errors.Is(err, kv.ErrKeyNotFound) {
		return zero, ErrMiss
	}

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
	if c == nil {
		return nil
	}

	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return c.kvStore.Set(ctx, c.key(key), data, ttl)
}

// Delete 删除缓存键.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}

	return kv.DeleteKeys(ctx, c.kvStore, full...)
}

// Exists 检查缓存键是否存在.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	if c == nil {
		return false, nil
	}

	return c.kvStore.Exists(ctx, c.key(key))
}

// GetOrSet 获取缓存值，未命中时回源并写回. KV 读写失败只记录日志，不影响返回值.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, getter func() (T, error), ttl time.Duration) (T, error) {
	if c == nil {
		return getter()
	}

	value, err := Get[T](ctx, c, key)
	if err == nil {
		return value, nil
	}

	if !errors.Is(err, ErrMiss) {
		nlog.Logger().Warn().Err(err).Str("key", c.key(key)).Msg("cache read failed, falling back")
	}

	v, err, _ := c.group.Do(c.key(key), func() (any, error) {
		fresh, err := getter()
		if err != nil {
			return fresh, err
		}

		if setErr := Set(ctx, c, key, fresh, ttl); setErr != nil {
			nlog.Logger().Warn().Err(setErr).Str("key", c.key(key)).Msg("cache write failed")
		}

		return fresh, nil
	})
	if err != nil {
		var zero T

		return zero, err
	}

	return v.(T), nil
}

// Clear 清空当前命名空间下的全部键.
func (c *Cache) Clear(ctx context.Context) error {
	if c == nil {
		return nil
	}

	keys, err := c.kvStore.Keys(ctx, c.key("*"))
	if err != nil {
		return err
	}

	return kv.DeleteKeys(ctx, c.kvStore, keys...)
}
