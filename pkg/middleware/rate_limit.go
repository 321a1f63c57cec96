package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/postvault/pkg/configs"
)

// RateLimitMiddleware 按配置的维度限流，超出时返回 429 与 Retry-After.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	set := newLimiterSet(cfg)
	keyOf := rateKeyFunc(cfg.Key)

	return func(c *gin.Context) {
		if !set.get(keyOf(c)).Allow() {
			c.Header("Retry-After", strconv.Itoa(set.retryAfter()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})

			return
		}

		c.Next()
	}
}

// rateKeyFunc 解析限流维度：global、ip、user、header:Name.
func rateKeyFunc(mode string) func(*gin.Context) string {
	mode = strings.TrimSpace(mode)

	switch {
	case mode == "" || strings.EqualFold(mode, "global"):
		return func(*gin.Context) string { return "" }
	case strings.EqualFold(mode, "user"):
		return func(c *gin.Context) string {
			if u := GetUser(c); u != "" {
				return "u:" + u
			}

			return "ip:" + c.ClientIP()
		}
	case len(mode) > len("header:") && strings.EqualFold(mode[:len("header:")], "header:"):
		name := mode[len("header:"):]

		return func(c *gin.Context) string {
			if v := c.GetHeader(name); v != "" {
				return "h:" + v
			}

			return "ip:" + c.ClientIP()
		}
	default:
		return func(c *gin.Context) string { return "ip:" + c.ClientIP() }
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet 每个键一个令牌桶，超过 idle 未访问的键在下次清扫时移除.
type limiterSet struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
}

func newLimiterSet(cfg configs.RateLimitConfig) *limiterSet {
	return &limiterSet{
		entries: make(map[string]*limiterEntry),
		limit:   rate.Limit(cfg.RPS),
		burst:   cfg.Burst,
		idle:    cfg.IdleTimeout(),
	}
}

func (s *limiterSet) get(key string) *rate.Limiter {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) > s.idle {
		for k, e := range s.entries {
			if now.Sub(e.lastSeen) > s.idle {
				delete(s.entries, k)
			}
		}

		s.lastSweep = now
	}

	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}

	e.lastSeen = now

	return e.limiter
}

// retryAfter 补充一个令牌所需的秒数，至少 1.
func (s *limiterSet) retryAfter() int {
	secs := int(1 / float64(s.limit))
	if secs < 1 {
		return 1
	}

	return secs
}
