package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	appcache "github.com/yeisme/postvault/pkg/cache"
	"github.com/yeisme/postvault/pkg/configs"
	"github.com/yeisme/postvault/pkg/internal/storage/kv"
	"github.com/yeisme/postvault/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func request(e *gin.Engine, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	return w
}

// TestIdentityMiddleware 测试身份解析、跳过路径与调试兜底.
func TestIdentityMiddleware(t *testing.T) {
	e := gin.New()
	e.Use(middleware.IdentityMiddleware(false, "/health"))
	e.GET("/me", func(c *gin.Context) { c.String(http.StatusOK, middleware.GetUser(c)) })
	e.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	if w := request(e, "/me", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", w.Code)
	}

	if w := request(e, "/me", map[string]string{"X-Forwarded-Email": "bob@example.com"}); w.Body.String() != "bob@example.com" {
		t.Fatalf("unexpected user %q", w.Body.String())
	}

	if w := request(e, "/health", nil); w.Code != http.StatusOK {
		t.Fatalf("expected skipped path to pass, got %d", w.Code)
	}

	dev := gin.New()
	dev.Use(middleware.IdentityMiddleware(true))
	dev.GET("/me", func(c *gin.Context) { c.String(http.StatusOK, middleware.GetUser(c)) })

	if w := request(dev, "/me", nil); w.Body.String() != middleware.DevUser {
		t.Fatalf("expected dev user, got %q", w.Body.String())
	}

	if w := request(dev, "/me?user=carol", nil); w.Body.String() != "carol" {
		t.Fatalf("expected query user, got %q", w.Body.String())
	}
}

// TestCacheMiddlewarePerUser 测试统计响应按用户缓存以及 ETag.
func TestCacheMiddlewarePerUser(t *testing.T) {
	store, err := kv.NewMemoryKV(context.Background(), nil)
	if err != nil {
		t.Fatalf("memory kv: %v", err)
	}

	var calls atomic.Int32

	cfg := middleware.DefaultCacheConfig(appcache.NewCache(store, "http"))
	cfg.TTL = time.Minute

	e := gin.New()
	e.Use(middleware.IdentityMiddleware(false), middleware.CacheMiddleware(cfg))
	e.GET("/stats", func(c *gin.Context) {
		calls.Add(1)
		c.JSON(http.StatusOK, gin.H{"user": middleware.GetUser(c)})
	})

	alice := map[string]string{"X-User": "alice"}

	first := request(e, "/stats", alice)
	if first.Header().Get("X-Cache") == "HIT" {
		t.Fatal("first request must not be a cache hit")
	}

	second := request(e, "/stats", alice)
	if second.Header().Get("X-Cache") != "HIT" || second.Body.String() != first.Body.String() {
		t.Fatalf("expected cached body, got %q (%s)", second.Body.String(), second.Header().Get("X-Cache"))
	}

	if calls.Load() != 1 {
		t.Fatalf("handler should run once, ran %d", calls.Load())
	}

	etag := second.Header().Get("ETag")
	if w := request(e, "/stats", map[string]string{"X-User": "alice", "If-None-Match": etag}); w.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w.Code)
	}

	if w := request(e, "/stats", map[string]string{"X-User": "bob"}); w.Header().Get("X-Cache") == "HIT" {
		t.Fatal("another user must not see alice's cached response")
	}

	if w := request(e, "/stats", map[string]string{"X-User": "alice", "X-Cache-Bypass": "1"}); w.Header().Get("X-Cache") == "HIT" {
		t.Fatal("bypass header must skip the cache")
	}

	if calls.Load() != 3 {
		t.Fatalf("expected 3 handler runs, got %d", calls.Load())
	}
}

// TestCircuitBreakerOpens 测试连续 5xx 后熔断返回 503.
func TestCircuitBreakerOpens(t *testing.T) {
	cfg := configs.CircuitBreakerConfig{
		Enabled:           true,
		FailureRate:       0.5,
		MinRequests:       2,
		IntervalSeconds:   60,
		TimeoutSeconds:    60,
		MaxRequestsInHalf: 1,
	}

	var calls atomic.Int32

	e := gin.New()
	e.Use(middleware.CircuitBreakerMiddleware(cfg))
	e.GET("/boom", func(c *gin.Context) {
		calls.Add(1)
		c.Status(http.StatusInternalServerError)
	})

	for range 2 {
		if w := request(e, "/boom", nil); w.Code != http.StatusInternalServerError {
			t.Fatalf("expected handler 500 while closed, got %d", w.Code)
		}
	}

	if w := request(e, "/boom", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 once open, got %d", w.Code)
	}

	if calls.Load() != 2 {
		t.Fatalf("handler must not run while open, ran %d", calls.Load())
	}
}

// TestRateLimitPerUser 测试按用户限流互不影响.
func TestRateLimitPerUser(t *testing.T) {
	cfg := configs.RateLimitConfig{Enabled: true, RPS: 0.5, Burst: 1, Key: "user"}

	e := gin.New()
	e.Use(middleware.IdentityMiddleware(false), middleware.RateLimitMiddleware(cfg))
	e.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	alice := map[string]string{"X-User": "alice"}

	if w := request(e, "/ping", alice); w.Code != http.StatusNoContent {
		t.Fatalf("first request should pass, got %d", w.Code)
	}

	w := request(e, "/ping", alice)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}

	if w.Header().Get("Retry-After") != "2" {
		t.Fatalf("unexpected Retry-After %q", w.Header().Get("Retry-After"))
	}

	if w := request(e, "/ping", map[string]string{"X-User": "bob"}); w.Code != http.StatusNoContent {
		t.Fatalf("other users have their own bucket, got %d", w.Code)
	}
}
