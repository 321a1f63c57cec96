//go:build !no_redis

package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yeisme/postvault/pkg/configs"
)

const redisScanCount = 200

// RedisKV 基于 Redis 的实现，所有键加上配置的前缀以便与其他应用共用实例.
type RedisKV struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisKV 连接 Redis 并校验可用.
func NewRedisKV(ctx context.Context, config any) (KVStore, error) {
	cfg, ok := config.(*configs.RedisKVConfig)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("invalid Redis config")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		ClientName: "postvault-kv",
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return &RedisKV{rdb: rdb, prefix: cfg.KeyPrefix}, nil
}

func (r *RedisKV) k(key string) string { return r.prefix + key }

// Get 获取键的值.
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.rdb.Get(ctx, r.k(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	return b, nil
}

// Set 写入键值，ttl 交给 Redis 原生过期.
func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, r.k(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	return nil
}

// Delete 删除键.
func (r *RedisKV) Delete(ctx context.Context, key string) error {
	return r.DeleteMany(ctx, key)
}

// DeleteMany 用 UNLINK 批量异步删除.
func (r *RedisKV) DeleteMany(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = r.k(key)
	}

	if err := r.rdb.Unlink(ctx, full...).Err(); err != nil {
		return fmt.Errorf("unlink %d keys: %w", len(keys), err)
	}

	return nil
}

// Exists 检查键是否存在.
func (r *RedisKV) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.k(key)).Result()
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}

	return n > 0, nil
}

// Keys 用 SCAN 遍历匹配的键，返回值已去掉前缀.
func (r *RedisKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}

	var keys []string

	iter := r.rdb.Scan(ctx, 0, r.k(pattern), redisScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[len(r.prefix):])
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", pattern, err)
	}

	return keys, nil
}

// Close 关闭连接.
func (r *RedisKV) Close() error {
	return r.rdb.Close()
}

func init() {
	RegisterKVFactory(KVTypeRedis, NewRedisKV)
}
