package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yeisme/postvault/pkg/cache"
	"github.com/yeisme/postvault/pkg/internal/storage/kv"
)

// summary 测试用的缓存值.
type summary struct {
	Projects int   `json:"projects"`
	Files    int   `json:"files"`
	Size     int64 `json:"size"`
}

func newCache(t *testing.T) *cache.Cache {
	t.Helper()

	store, err := kv.NewMemoryKV(context.Background(), nil)
	if err != nil {
		t.Fatalf("memory kv: %v", err)
	}

	return cache.NewCache(store, "test")
}

// TestSetGet 测试基本的 Set/Get 与未命中.
func TestSetGet(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	if _, err := cache.Get[summary](ctx, c, "missing"); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}

	want := summary{Projects: 2, Files: 5, Size: 1024}
	if err := cache.Set(ctx, c, "s", want, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := cache.Get[summary](ctx, c, "s")
	if err != nil || got != want {
		t.Fatalf("get = %+v, %v", got, err)
	}

	if err := c.Delete(ctx, "s"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if ok, _ := c.Exists(ctx, "s"); ok {
		t.Fatal("key should be gone after delete")
	}
}

// TestGetOrSet 第二次调用命中缓存，不再回源.
func TestGetOrSet(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	var calls int

	getter := func() (summary, error) {
		calls++
		return summary{Files: calls}, nil
	}

	first, err := cache.GetOrSet(ctx, c, "k", getter, time.Minute)
	if err != nil {
		t.Fatalf("GetOrSet: %v", err)
	}

	second, _ := cache.GetOrSet(ctx, c, "k", getter, time.Minute)
	if calls != 1 || first != second {
		t.Fatalf("expected one getter call, got %d (%+v vs %+v)", calls, first, second)
	}

	// 回源失败时返回错误且不写缓存
	_, err = cache.GetOrSet(ctx, c, "bad", func() (summary, error) {
		return summary{}, errors.New("db down")
	}, time.Minute)
	if err == nil {
		t.Fatal("expected getter error")
	}

	if ok, _ := c.Exists(ctx, "bad"); ok {
		t.Fatal("failed getter must not populate cache")
	}
}

// TestGetOrSetSingleflight 并发未命中只回源一次.
func TestGetOrSetSingleflight(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	var calls atomic.Int32

	release := make(chan struct{})
	getter := func() (summary, error) {
		calls.Add(1)
		<-release

		return summary{Projects: 1}, nil
	}

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, _ = cache.GetOrSet(ctx, c, "shared", getter, time.Minute)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("expected 1 getter call, got %d", n)
	}
}

// TestNilCache 未启用 KV 时直接回源.
func TestNilCache(t *testing.T) {
	ctx := context.Background()

	var c *cache.Cache

	if cache.NewCache(nil, "x") != nil {
		t.Fatal("NewCache(nil) should return nil")
	}

	v, err := cache.GetOrSet(ctx, c, "k", func() (int, error) { return 7, nil }, time.Minute)
	if err != nil || v != 7 {
		t.Fatalf("GetOrSet on nil cache = %d, %v", v, err)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete on nil cache: %v", err)
	}
}

// TestClearNamespace Clear 只删除本命名空间的键.
func TestClearNamespace(t *testing.T) {
	ctx := context.Background()

	store, _ := kv.NewMemoryKV(ctx, nil)
	a := cache.NewCache(store, "a")
	b := cache.NewCache(store, "b")

	_ = cache.Set(ctx, a, "1", 1, 0)
	_ = cache.Set(ctx, b, "1", 1, 0)

	if err := a.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if ok, _ := a.Exists(ctx, "1"); ok {
		t.Fatal("namespace a should be empty")
	}

	if ok, _ := b.Exists(ctx, "1"); !ok {
		t.Fatal("namespace b should be untouched")
	}
}

// BenchmarkGetOrSetHit 缓存命中路径.
func BenchmarkGetOrSetHit(b *testing.B) {
	ctx := context.Background()
	store, _ := kv.NewMemoryKV(ctx, nil)
	c := cache.NewCache(store, "bench")

	_ = cache.Set(ctx, c, "k", summary{Projects: 1}, 0)

	for b.Loop() {
		_, _ = cache.GetOrSet(ctx, c, "k", func() (summary, error) { return summary{}, nil }, 0)
	}
}
