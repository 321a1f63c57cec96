package kv

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache"

	"github.com/yeisme/postvault/pkg/configs"
)

// GroupcacheKV 基于 Groupcache 的 KV 实现.
//
// groupcache 的条目一旦加载便不可变，这里为每个键维护一个代数，
// Set/Delete 递增代数，读取时使用 "key@gen" 作为 groupcache 键，旧代数自然失效.
type GroupcacheKV struct {
	cache *groupcache.Group    // Groupcache 缓存组
	peers *groupcache.HTTPPool // 对等节点池
	data  map[string]gcEntry   // 本地存储数据
	gens  map[string]uint64    // 每个键的当前代数
	mu    sync.RWMutex         // 保护 data/gens 的读写锁
}

type gcEntry struct {
	value []byte
	gen   uint64
}

// groupcacheGetter 实现 groupcache.Getter 接口.
type groupcacheGetter struct {
	kv *GroupcacheKV
}

func (g *groupcacheGetter) Get(ctx context.Context, versioned string, dest groupcache.Sink) error {
	key, gen := splitGenKey(versioned)

	g.kv.mu.RLock()
	entry, exists := g.kv.data[key]
	g.kv.mu.RUnlock()

	if !exists || entry.gen != gen {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	if err := dest.SetBytes(entry.value); err != nil {
		return fmt.Errorf("failed to set bytes to sink: %w", err)
	}

	return nil
}

// NewGroupcacheKV 创建 Groupcache KV 实例.
func NewGroupcacheKV(ctx context.Context, config any) (KVStore, error) {
	gcConfig, ok := config.(*configs.GroupcacheKVConfig)
	if !ok || gcConfig == nil {
		return nil, fmt.Errorf("invalid Groupcache config")
	}

	kv := &GroupcacheKV{
		data: make(map[string]gcEntry),
		gens: make(map[string]uint64),
	}

	// groupcache 同名 group 只能注册一次
	if groupcache.GetGroup(gcConfig.Name) != nil {
		return nil, fmt.Errorf("groupcache group %q already registered", gcConfig.Name)
	}

	kv.cache = groupcache.NewGroup(gcConfig.Name, gcConfig.CacheBytes, &groupcacheGetter{kv: kv})

	if len(gcConfig.Peers) > 0 {
		kv.peers = groupcache.NewHTTPPoolOpts(gcConfig.Self, &groupcache.HTTPPoolOptions{})
		kv.peers.Set(gcConfig.Peers...)
	}

	return kv, nil
}

func genKey(key string, gen uint64) string {
	return key + "@" + strconv.FormatUint(gen, 10)
}

func splitGenKey(versioned string) (string, uint64) {
	i := strings.LastIndexByte(versioned, '@')
	if i < 0 {
		return versioned, 0
	}

	gen, err := strconv.ParseUint(versioned[i+1:], 10, 64)
	if err != nil {
		return versioned, 0
	}

	return versioned[:i], gen
}

// Get 获取键的值.
func (g *GroupcacheKV) Get(ctx context.Context, key string) ([]byte, error) {
	g.mu.RLock()
	entry, exists := g.data[key]
	g.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	var data []byte
	if err := g.cache.Get(ctx, genKey(key, entry.gen), groupcache.AllocatingByteSliceSink(&data)); err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	val, expired, _, err := decodeWithTTL(data, time.Now())
	if err != nil {
		return nil, err
	}

	if expired {
		_ = g.Delete(ctx, key)

		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	result := make([]byte, len(val))
	copy(result, val)

	return result, nil
}

// Set 设置键的值.
func (g *GroupcacheKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	encoded, _, err := encodeWithTTL(value, ttl)
	if err != nil {
		return err
	}

	buf := make([]byte, len(encoded))
	copy(buf, encoded)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.gens[key]++
	g.data[key] = gcEntry{value: buf, gen: g.gens[key]}

	return nil
}

// Delete 删除键.
func (g *GroupcacheKV) Delete(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.data[key]; ok {
		g.gens[key]++
		delete(g.data, key)
	}

	return nil
}

// Exists 检查键是否存在.
func (g *GroupcacheKV) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := g.Get(ctx, key); err != nil {
		return false, nil
	}

	return true, nil
}

// Keys 获取所有键.
func (g *GroupcacheKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := make([]string, 0, len(g.data))
	for key := range g.data {
		if matchKey(pattern, key) {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

// Close 关闭缓存.
func (g *GroupcacheKV) Close() error {
	return nil
}

func init() {
	RegisterKVFactory(KVTypeGroupcache, NewGroupcacheKV)
}
