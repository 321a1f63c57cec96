// Package app 提供应用程序的初始化、HTTP 服务组装与优雅退出.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/postvault/pkg/api"
	appcache "github.com/yeisme/postvault/pkg/cache"
	"github.com/yeisme/postvault/pkg/configs"
	"github.com/yeisme/postvault/pkg/internal/autosave"
	"github.com/yeisme/postvault/pkg/internal/jobs"
	"github.com/yeisme/postvault/pkg/internal/router"
	"github.com/yeisme/postvault/pkg/log"
	"github.com/yeisme/postvault/pkg/metrics"
	"github.com/yeisme/postvault/pkg/middleware"
	"github.com/yeisme/postvault/pkg/scheduler"
)

const statsCacheTTL = 15 * time.Second

// 维护类接口（手动触发清理、到期发布、任务调度）的全局限流.
var adminRateLimit = configs.RateLimitConfig{Enabled: true, RPS: 1, Burst: 5, Key: "global"}

type App struct {
	Engine *gin.Engine

	config    *configs.AppConfig
	runtime   *Runtime
	baseCtx   context.Context
	cancel    context.CancelFunc
	autosave  *autosave.Coordinator
	scheduler *scheduler.Scheduler
}

// NewApp 初始化全部组件并组装 gin 引擎，返回的 App 尚未开始监听.
func NewApp(configPath string) (*App, error) {
	rt, err := Bootstrap(context.Background(), configPath)
	if err != nil {
		return nil, err
	}

	config := rt.Config
	baseCtx, cancel := context.WithCancel(rt.Context(context.Background()))

	a := &App{config: config, runtime: rt, baseCtx: baseCtx, cancel: cancel}
	a.autosave = rt.NewAutosave(baseCtx)

	a.scheduler, err = scheduler.NewScheduler(scheduler.WithClock(rt.Clock))
	if err != nil {
		a.close()

		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	if err := jobs.RegisterCronJobs(baseCtx, a.scheduler, config.Lifecycle); err != nil {
		a.close()

		return nil, fmt.Errorf("register jobs: %w", err)
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.CORSMiddleware(config.Server),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.IdentityMiddleware(config.Server.AllowQueryUser, "/api/v1/health", "/metrics", "/debug"),
		middleware.GinLoggerMiddleware(),
		middleware.RateLimitMiddleware(config.RateLimit),
		middleware.CircuitBreakerMiddleware(config.CircuitBreaker),
		middleware.CompressionMiddleware(),
		middleware.StorageMiddleware(rt.Storage),
		middleware.LifecycleMiddleware(middleware.Lifecycle{
			Publishers: rt.Publishers,
			Autosave:   a.autosave,
			Scheduler:  a.scheduler,
			Clock:      rt.Clock,
		}),
	)

	api.RegisterGroup(engine, a.routeOptions())

	if config.Metrics.Enabled {
		_ = metrics.StartMetricsServer(config.Metrics, engine)
	}

	a.Engine = engine

	return a, nil
}

// routeOptions 统计路由在启用 KV 时使用响应缓存，维护路由统一限流.
func (a *App) routeOptions() router.Options {
	opts := router.Options{
		AdminMiddleware: []gin.HandlerFunc{middleware.RateLimitMiddleware(adminRateLimit)},
	}

	if kvc := a.runtime.Storage.KV; kvc != nil {
		cc := middleware.DefaultCacheConfig(appcache.NewCache(kvc, "http"))
		cc.TTL = statsCacheTTL
		cc.Now = a.runtime.Clock.Now
		opts.StatsMiddleware = append(opts.StatsMiddleware, middleware.CacheMiddleware(cc))
	}

	return opts
}

// Run 启动调度器与 HTTP 服务，收到 SIGINT/SIGTERM 后优雅退出.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              a.config.Server.Addr(),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.GetTimeoutDuration(),
	}

	a.scheduler.Start()

	errCh := make(chan error, 1)

	go func() {
		log.Logger().Info().Str("addr", srv.Addr).Msg("http server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	var runErr error

	select {
	case <-ctx.Done():
		log.Logger().Info().Msg("shutting down")
	case runErr = <-errCh:
	}

	sctx, cancel := context.WithTimeout(context.Background(), a.config.Server.GetShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		log.Logger().Error().Err(err).Msg("http server shutdown failed")
	}

	return errors.Join(runErr, a.Shutdown(sctx))
}

// Shutdown 停止调度器、写入未保存的草稿并关闭存储，顺序与启动相反.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if err := a.scheduler.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
	}

	if err := a.autosave.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush autosave: %w", err))
	}

	a.cancel()

	if err := a.runtime.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close runtime: %w", err))
	}

	return errors.Join(errs...)
}

func (a *App) close() {
	a.cancel()
	_ = a.runtime.Close(context.Background())
}
