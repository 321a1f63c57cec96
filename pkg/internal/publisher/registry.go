package publisher

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/yeisme/postvault/pkg/configs"
	nlog "github.com/yeisme/postvault/pkg/log"
	"github.com/yeisme/postvault/pkg/metrics"
)

// Registry 平台名到适配器的路由表.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*guarded
	breaker configs.CircuitBreakerConfig
}

// guarded 为适配器加上限流与熔断.
type guarded struct {
	name    string
	pub     Publisher
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker
}

// NewRegistry 按配置构建全部平台. 单个平台构建失败只记录日志并跳过，
// 指向它的提交会以 ErrUnknownPlatform 失败.
func NewRegistry(cfg *configs.PublisherConfig, deps Deps) *Registry {
	r := &Registry{
		entries: make(map[string]*guarded),
		breaker: cfg.Breaker,
	}

	for name, pc := range cfg.Platforms {
		pub, err := build(name, pc, deps)
		if err != nil {
			nlog.Logger().Warn().Err(err).Str("platform", name).Msg("publisher disabled")

			continue
		}

		r.Register(name, pub, pc.RPS, pc.Burst)
	}

	nlog.Logger().Info().Strs("platforms", r.Platforms()).Msg("publishers ready")

	return r
}

// Register 注册（或替换）一个平台. rps <= 0 表示不限流.
func (r *Registry) Register(name string, pub Publisher, rps float64, burst int) {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}

	if burst <= 0 {
		burst = 1
	}

	g := &guarded{
		name:    name,
		pub:     pub,
		limiter: rate.NewLimiter(limit, burst),
	}

	if r.breaker.Enabled {
		g.cb = newBreaker(name, r.breaker)
	}

	r.mu.Lock()
	r.entries[name] = g
	r.mu.Unlock()
}

func newBreaker(name string, cfg configs.CircuitBreakerConfig) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "publisher-" + name,
		MaxRequests: cfg.MaxRequestsInHalf,
		Interval:    cfg.Interval(),
		Timeout:     cfg.Timeout(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.ShouldTrip(counts.Requests, counts.TotalFailures)
		},
		// 平台明确拒绝属于内容问题，不计入熔断失败
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			nlog.Logger().Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
}

// Platforms 返回已注册平台名（排序）.
func (r *Registry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Has 平台是否已注册.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[name]

	return ok
}

// Submit 按 req.Platform 路由提交.
func (r *Registry) Submit(ctx context.Context, req Request) (Result, error) {
	if r == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownPlatform, req.Platform)
	}

	r.mu.RLock()
	g, ok := r.entries[req.Platform]
	r.mu.RUnlock()

	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownPlatform, req.Platform)
	}

	return g.Submit(ctx, req)
}

// Submit 实现 Publisher.
func (g *guarded) Submit(ctx context.Context, req Request) (res Result, err error) {
	start := time.Now()

	defer func() {
		metrics.PublishLatency.WithLabelValues(g.name).Observe(time.Since(start).Seconds())
		metrics.PublishSubmissions.WithLabelValues(g.name, metrics.Result(err)).Inc()
	}()

	if err := g.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit: %w", err)
	}

	if g.cb == nil {
		return g.pub.Submit(ctx, req)
	}

	out, err := g.cb.Execute(func() (any, error) {
		return g.pub.Submit(ctx, req)
	})
	if err != nil {
		return Result{}, err
	}

	return out.(Result), nil
}
