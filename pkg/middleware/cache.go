package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	appcache "github.com/yeisme/postvault/pkg/cache"
	"github.com/yeisme/postvault/pkg/log"
)

const (
	DefaultMaxBodyBytes = 256 << 10 // 统计类响应体很小，超过即不缓存
	defaultTTL          = 30 * time.Second
	cacheStoreTimeout   = 2 * time.Second
	bypassHeader        = "X-Cache-Bypass"
)

// CacheConfig 响应缓存配置.
type CacheConfig struct {
	Cache        *appcache.Cache // 必须
	TTL          time.Duration
	MaxBodyBytes int
	// Now 取当前时间，测试中可替换
	Now func() time.Time
}

// DefaultCacheConfig 返回默认配置.
func DefaultCacheConfig(c *appcache.Cache) CacheConfig {
	return CacheConfig{Cache: c, TTL: defaultTTL, MaxBodyBytes: DefaultMaxBodyBytes, Now: time.Now}
}

// cachedResponse 缓存中的响应.
type cachedResponse struct {
	Status      int    `json:"s"`
	ContentType string `json:"ct"`
	Body        []byte `json:"b"`
	ETag        string `json:"e"`
	StoredAt    int64  `json:"t"`
}

// CacheMiddleware 缓存只读统计接口的 200 响应.
//
// 缓存键由路由、排序后的查询参数与当前用户组成，不同用户互不可见.
// 支持 If-None-Match，请求携带 X-Cache-Bypass 时跳过缓存. 缓存读写失败只影响命中率.
func CacheMiddleware(cfg CacheConfig) gin.HandlerFunc {
	if cfg.Cache == nil {
		panic("CacheMiddleware: Cache cannot be nil")
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || c.GetHeader(bypassHeader) != "" {
			c.Next()
			return
		}

		key := responseKey(c)

		if entry, err := appcache.Get[cachedResponse](c.Request.Context(), cfg.Cache, key); err == nil {
			replay(c, cfg, entry)
			return
		}

		w := &bodyCaptureWriter{ResponseWriter: c.Writer, max: cfg.MaxBodyBytes}
		c.Writer = w
		c.Next()

		if c.Writer.Status() != http.StatusOK || w.truncated || cfg.TTL <= 0 {
			return
		}

		entry := cachedResponse{
			Status:      http.StatusOK,
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        bytes.Clone(w.buf.Bytes()),
			ETag:        fmt.Sprintf("\"%x\"", xxhash.Sum64(w.buf.Bytes())),
			StoredAt:    cfg.Now().UnixNano(),
		}

		// 请求结束后 context 会被取消，写缓存使用独立的超时.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), cacheStoreTimeout)
		defer cancel()

		if err := appcache.Set(ctx, cfg.Cache, key, entry, cfg.TTL); err != nil {
			log.Ctx(ctx).Debug().Err(err).Str("path", c.FullPath()).Msg("store response cache failed")
		}
	}
}

func replay(c *gin.Context, cfg CacheConfig, entry cachedResponse) {
	h := c.Writer.Header()
	h.Set("ETag", entry.ETag)
	h.Set("X-Cache", "HIT")
	h.Set("Age", fmt.Sprintf("%.0f", cfg.Now().Sub(time.Unix(0, entry.StoredAt)).Seconds()))

	if c.GetHeader("If-None-Match") == entry.ETag {
		c.AbortWithStatus(http.StatusNotModified)
		return
	}

	c.Data(entry.Status, entry.ContentType, entry.Body)
	c.Abort()
}

// responseKey 形如 "GET:/api/v1/stats/trend?days=7|u=alice" 的 xxhash.
func responseKey(c *gin.Context) string {
	var b strings.Builder

	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}

	b.WriteString(c.Request.Method)
	b.WriteByte(':')
	b.WriteString(path)

	if q := c.Request.URL.Query(); len(q) > 0 {
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		for i, k := range keys {
			if i == 0 {
				b.WriteByte('?')
			} else {
				b.WriteByte('&')
			}

			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(strings.Join(q[k], ","))
		}
	}

	b.WriteString("|u=")
	b.WriteString(GetUser(c))

	return fmt.Sprintf("rc:%x", xxhash.Sum64String(b.String()))
}

// bodyCaptureWriter 复制响应体，超过 max 字节后标记为截断.
type bodyCaptureWriter struct {
	gin.ResponseWriter

	buf       bytes.Buffer
	max       int
	truncated bool
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	if !w.truncated {
		if w.max > 0 && w.buf.Len()+len(b) > w.max {
			w.truncated = true
			w.buf.Reset()
		} else {
			w.buf.Write(b)
		}
	}

	return w.ResponseWriter.Write(b)
}
