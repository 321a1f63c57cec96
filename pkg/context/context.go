// Package context 拓展上下文功能，将日志、服务等集成到上下文中，方便在应用程序各处传递和使用.
package context

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/yeisme/postvault/pkg/internal/autosave"
	"github.com/yeisme/postvault/pkg/internal/publisher"
	"github.com/yeisme/postvault/pkg/internal/storage"
	dbc "github.com/yeisme/postvault/pkg/internal/storage/db"
	kvc "github.com/yeisme/postvault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/postvault/pkg/internal/storage/mq"
	s3c "github.com/yeisme/postvault/pkg/internal/storage/s3"
	"github.com/yeisme/postvault/pkg/scheduler"
)

type ContextKey string

const (
	StorageManagerKey ContextKey = "storageManager"
	ClockKey          ContextKey = "clock"
	PublishersKey     ContextKey = "publishers"
	AutosaveKey       ContextKey = "autosave"
	SchedulerKey      ContextKey = "scheduler"
)

var realClock = clockwork.NewRealClock()

// WithClock 注入时钟，测试中使用 clockwork.FakeClock 控制时间.
func WithClock(ctx context.Context, clock clockwork.Clock) context.Context {
	return context.WithValue(ctx, ClockKey, clock)
}

// GetClock 获取时钟，未注入时返回真实时钟.
func GetClock(ctx context.Context) clockwork.Clock {
	if clock, ok := ctx.Value(ClockKey).(clockwork.Clock); ok && clock != nil {
		return clock
	}

	return realClock
}

// WithPublishers 注入发布平台注册表.
func WithPublishers(ctx context.Context, reg *publisher.Registry) context.Context {
	return context.WithValue(ctx, PublishersKey, reg)
}

// GetPublishers 获取发布平台注册表.
func GetPublishers(ctx context.Context) *publisher.Registry {
	if reg, ok := ctx.Value(PublishersKey).(*publisher.Registry); ok {
		return reg
	}

	return nil
}

// WithScheduler 注入定时任务调度器.
func WithScheduler(ctx context.Context, s *scheduler.Scheduler) context.Context {
	return context.WithValue(ctx, SchedulerKey, s)
}

// GetScheduler 获取调度器，未运行时为 nil.
func GetScheduler(ctx context.Context) *scheduler.Scheduler {
	if s, ok := ctx.Value(SchedulerKey).(*scheduler.Scheduler); ok {
		return s
	}

	return nil
}

// WithAutosave 注入自动保存协调器.
func WithAutosave(ctx context.Context, c *autosave.Coordinator) context.Context {
	return context.WithValue(ctx, AutosaveKey, c)
}

// GetAutosave 获取自动保存协调器.
func GetAutosave(ctx context.Context) *autosave.Coordinator {
	if c, ok := ctx.Value(AutosaveKey).(*autosave.Coordinator); ok {
		return c
	}

	return nil
}

// WithStorageManager 将 Manager 存储到 context 中.
func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return context.WithValue(ctx, StorageManagerKey, mgr)
}

// GetManager 从 context 中获取 Manager.
func GetManager(ctx context.Context) *storage.Manager {
	if mgr, ok := ctx.Value(StorageManagerKey).(*storage.Manager); ok {
		return mgr
	}

	return nil
}

// GetS3Client 从 context 中获取 S3 客户端.
func GetS3Client(ctx context.Context) *s3c.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetS3Client()
	}

	return nil
}

// GetDBClient 从 context 中获取 DB 客户端.
func GetDBClient(ctx context.Context) *dbc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetDBClient()
	}

	return nil
}

// GetMQClient 从 context 中获取 MQ 客户端.
func GetMQClient(ctx context.Context) *mqc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetMQClient()
	}

	return nil
}

// GetKVClient 从 context 中获取 KV 客户端.
func GetKVClient(ctx context.Context) *kvc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetKVClient()
	}

	return nil
}
