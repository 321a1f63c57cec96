package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/yeisme/postvault/pkg/configs"
)

// NATSKV 基于 JetStream KeyValue bucket 的实现，统计缓存等短期数据可在多实例间共享.
type NATSKV struct {
	conn *nats.Conn
	kv   jetstream.KeyValue
}

// NewNATSKV 连接 NATS 并创建或更新配置的 bucket.
func NewNATSKV(ctx context.Context, config any) (KVStore, error) {
	cfg, ok := config.(*configs.NATSKVConfig)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("invalid NATS config")
	}

	opts := []nats.Option{nats.Name("postvault-kv")}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	bucket, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "postvault cache",
		TTL:         time.Duration(cfg.MaxAgeSeconds) * time.Second,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("kv bucket %s: %w", cfg.Bucket, err)
	}

	return &NATSKV{conn: nc, kv: bucket}, nil
}

// entry 读取未过期的值，过期条目顺带删除.
func (n *NATSKV) entry(ctx context.Context, key string) ([]byte, error) {
	e, err := n.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	val, expired, _, err := decodeWithTTL(e.Value(), time.Now())
	if err != nil {
		return nil, err
	}

	if expired {
		_ = n.kv.Delete(ctx, key)
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	return val, nil
}

// Get 获取键的值.
func (n *NATSKV) Get(ctx context.Context, key string) ([]byte, error) {
	return n.entry(ctx, key)
}

// Set 写入键值，ttl>0 时包装过期时间.
func (n *NATSKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	encoded, _, err := encodeWithTTL(value, ttl)
	if err != nil {
		return err
	}

	if _, err := n.kv.Put(ctx, key, encoded); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	return nil
}

// Delete 删除键，不存在视为成功.
func (n *NATSKV) Delete(ctx context.Context, key string) error {
	if err := n.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("delete %s: %w", key, err)
	}

	return nil
}

// Exists 检查键是否存在且未过期.
func (n *NATSKV) Exists(ctx context.Context, key string) (bool, error) {
	_, err := n.entry(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}

	return err == nil, err
}

// Keys 列出匹配 pattern 且未过期的键.
func (n *NATSKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	lister, err := n.kv.ListKeys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return []string{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	defer func() { _ = lister.Stop() }()

	var candidates []string

	for key := range lister.Keys() {
		if matchKey(pattern, key) {
			candidates = append(candidates, key)
		}
	}

	result := make([]string, 0, len(candidates))

	for _, key := range candidates {
		if _, err := n.entry(ctx, key); err == nil {
			result = append(result, key)
		}
	}

	return result, nil
}

// Close 关闭 NATS 连接.
func (n *NATSKV) Close() error {
	n.conn.Close()
	return nil
}

func init() {
	RegisterKVFactory(KVTypeNATS, NewNATSKV)
}
