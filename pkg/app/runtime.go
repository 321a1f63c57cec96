package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yeisme/postvault/pkg/configs"
	ctxPkg "github.com/yeisme/postvault/pkg/context"
	"github.com/yeisme/postvault/pkg/internal/autosave"
	"github.com/yeisme/postvault/pkg/internal/publisher"
	"github.com/yeisme/postvault/pkg/internal/service"
	"github.com/yeisme/postvault/pkg/internal/storage"
	"github.com/yeisme/postvault/pkg/log"
	"github.com/yeisme/postvault/pkg/metrics"
	"github.com/yeisme/postvault/pkg/tracing"
)

// Runtime 服务进程与命令行任务共用的组件集合.
type Runtime struct {
	Config     *configs.AppConfig
	Storage    *storage.Manager
	Publishers *publisher.Registry
	Clock      clockwork.Clock
}

// Bootstrap 加载配置并初始化日志、追踪、指标、存储与发布注册表.
func Bootstrap(ctx context.Context, configPath string) (*Runtime, error) {
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	cfg := configs.GetConfig()
	log.Init()

	if err := tracing.InitTracer(cfg.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if err := metrics.InitMetrics(cfg.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	mgr, err := storage.Init(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	if cfg.DB.AutoMigrate {
		if err := mgr.DB.Migrate(ctx); err != nil {
			_ = mgr.Close()

			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	deps := publisher.Deps{}
	if mgr.S3 != nil {
		deps.Objects = mgr.S3
	}

	return &Runtime{
		Config:     cfg,
		Storage:    mgr,
		Publishers: publisher.NewRegistry(&cfg.Publisher, deps),
		Clock:      clockwork.NewRealClock(),
	}, nil
}

// Context 注入存储、发布注册表与时钟，service 与定时任务从中取依赖.
func (r *Runtime) Context(ctx context.Context) context.Context {
	ctx = ctxPkg.WithStorageManager(ctx, r.Storage)
	ctx = ctxPkg.WithPublishers(ctx, r.Publishers)

	return ctxPkg.WithClock(ctx, r.Clock)
}

// NewAutosave 创建以 FileService 为持久化端的自动保存协调器.
func (r *Runtime) NewAutosave(baseCtx context.Context) *autosave.Coordinator {
	lc := r.Config.Lifecycle
	files := service.NewFileService(baseCtx)

	return autosave.New(files,
		autosave.WithClock(r.Clock),
		autosave.WithBaseContext(baseCtx),
		autosave.WithQuietPeriod(lc.AutosaveQuietPeriod),
		autosave.WithWriteTimeout(lc.AutosaveWriteTimeout),
		autosave.WithOnWrite(func(_ string, err error) {
			metrics.AutosaveWrites.WithLabelValues(metrics.Result(err)).Inc()
		}),
	)
}

// Close 依次关闭存储与追踪导出器.
func (r *Runtime) Close(ctx context.Context) error {
	err := r.Storage.Close()

	tctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if terr := tracing.ShutdownTracer(tctx); terr != nil && err == nil {
		err = terr
	}

	return err
}
