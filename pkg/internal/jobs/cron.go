// Package jobs 负责注册与实现业务定时任务（基于 scheduler）.
package jobs

import (
	"context"
	"errors"

	"github.com/yeisme/postvault/pkg/configs"
	"github.com/yeisme/postvault/pkg/internal/service"
	"github.com/yeisme/postvault/pkg/log"
	"github.com/yeisme/postvault/pkg/scheduler"
)

// 任务名称，同时用作调度器中的唯一键与 /scheduler/jobs/:name 路径参数.
const (
	JobTrashCleanup = "trash.cleanup"
	JobPublishDue   = "publish.due"
)

// RegisterCronJobs 配置业务定时任务：
//   - 按 lifecycle.cleanup_cron 永久删除超过保留期的回收站条目
//   - 按 lifecycle.due_publish_cron 提交到期的定时帖子
//
// baseCtx 需携带存储管理器、时钟与发布注册表（见 pkg/context），任务在其上运行.
func RegisterCronJobs(baseCtx context.Context, sched *scheduler.Scheduler, lc configs.LifecycleConfig) error {
	if sched == nil {
		return errors.New("scheduler is nil")
	}

	return errors.Join(
		sched.AddCron(baseCtx, JobTrashCleanup, lc.CleanupCron, TrashCleanup),
		sched.AddCron(baseCtx, JobPublishDue, lc.DuePublishCron, PublishDue),
	)
}

// TrashCleanup 执行一次过期回收站清理，命令行 trash sweep 也复用它.
func TrashCleanup(ctx context.Context) error {
	l := log.Logger().With().Str("job", JobTrashCleanup).Logger()

	res, err := service.NewTrashService(ctx).CleanupExpiredTrash(ctx)
	if err != nil {
		l.Error().Err(err).Int("projects", res.DeletedProjects).Int("files", res.DeletedFiles).Msg("trash cleanup finished with errors")

		return err
	}

	if res.DeletedProjects+res.DeletedFiles > 0 {
		l.Info().Int("projects", res.DeletedProjects).Int("files", res.DeletedFiles).Msg("trash cleanup done")
	}

	return nil
}

// PublishDue 提交所有到期的定时帖子.
func PublishDue(ctx context.Context) error {
	l := log.Logger().With().Str("job", JobPublishDue).Logger()

	res, err := service.NewPublishService(ctx).ProcessDuePosts(ctx)
	if err != nil {
		l.Error().Err(err).Interface("result", res).Msg("due publish finished with errors")

		return err
	}

	if res.Scanned > 0 {
		l.Info().
			Int("scanned", res.Scanned).
			Int("posted", res.Posted).
			Int("failed", res.Failed).
			Int("skipped", res.Skipped).
			Msg("due posts processed")
	}

	return nil
}
