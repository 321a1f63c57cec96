package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	ctxPkg "github.com/yeisme/postvault/pkg/context"
	"github.com/yeisme/postvault/pkg/internal/model"
	"github.com/yeisme/postvault/pkg/internal/publish"
	"github.com/yeisme/postvault/pkg/internal/publisher"
	"github.com/yeisme/postvault/pkg/internal/storage/db"
	"github.com/yeisme/postvault/pkg/internal/types"
	nlog "github.com/yeisme/postvault/pkg/log"
	"github.com/yeisme/postvault/pkg/queue"
	"github.com/yeisme/postvault/pkg/tracing"
)

// UnknownOutcome 对账时写入的错误信息.
const UnknownOutcome = "submission outcome unknown: process stopped while posting, verify on the platform before retrying"

// PublishService 编排发布状态机：定时、提交、到期检查与手动对账.
//
// 状态变更都是条件更新（WHERE status IN 允许的起始状态），并发的定时任务与
// 手动提交只有一方能把帖子置为 posting. 平台调用在事务之外进行，
// 失败写入记录（status=failed, error_message）而不是返回给调用方.
type PublishService struct {
	base
	publishers *publisher.Registry
}

func NewPublishService(c context.Context) *PublishService {
	return &PublishService{base: newBase(c), publishers: ctxPkg.GetPublishers(c)}
}

// SchedulePost 更新帖子内容并设定定时，状态置为 scheduled.
func (s *PublishService) SchedulePost(ctx context.Context, fileID string, req types.SchedulePostRequest) (*model.File, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	at, err := publish.ParseScheduleTime(req.ScheduledAt)
	if err != nil {
		return nil, err
	}

	f, err := db.Get[model.File](ctx, s.db, fileID)
	if err != nil {
		return nil, fmt.Errorf("file %s: %w", fileID, err)
	}

	next, err := publish.Transition(f.Status, publish.EventSchedule)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := publish.ValidateScheduleTime(at, now); err != nil {
		return nil, err
	}

	if req.Platform != nil {
		f.Platform = *req.Platform
	}

	if req.Title != nil {
		f.Title = *req.Title
	}

	if req.Content != nil {
		f.Content = *req.Content
		f.Size = int64(len(f.Content))
	}

	if req.PlatformSettings != nil {
		f.PlatformSettings = *req.PlatformSettings
	}

	if err := publish.Validate(f, s.lc.ContentLimit()); err != nil {
		return nil, err
	}

	// 重新定时的失败帖子不再携带上一次的错误
	f.Status = next
	f.ScheduledAt = &at
	f.ErrorMessage = ""
	f.LastModified, f.UpdatedAt = now, now

	n, err := db.Save(ctx, s.db, claimFrom(publish.EventSchedule), f,
		"platform", "title", "content", "size", "platform_settings",
		"status", "scheduled_at", "error_message", "last_modified", "updated_at")
	if err != nil {
		return nil, err
	}

	if n == 0 {
		return nil, fmt.Errorf("%w: file %s changed state concurrently", publish.ErrInvalidTransition, fileID)
	}

	emit(ctx, &s.base, s.events.Post.Scheduled, queue.PostScheduled, queue.PostScheduledPayload{
		FileID: f.ID, Platform: f.Platform, ScheduledAt: at,
	})

	return f, nil
}

// claimFrom 条件更新：只匹配允许 event 的起始状态.
func claimFrom(event publish.Event) db.Query {
	return db.Query{Where: "status IN ?", Args: []any{publish.From(event)}}
}

// Submit 立即向平台提交帖子.
//
// 状态不允许或校验失败时返回错误且不改变任何状态；相同内容的提交正在进行时返回
// ErrSubmissionInFlight. 平台失败不作为错误返回，而是体现在返回记录的 status 与
// error_message 上.
func (s *PublishService) Submit(ctx context.Context, fileID string) (out *model.File, err error) {
	ctx, span := tracing.StartSpan(ctx, "publish.submit")
	defer func() { tracing.EndSpan(span, err) }()

	if err := s.ready(); err != nil {
		return nil, err
	}

	f, err := db.Get[model.File](ctx, s.db, fileID)
	if err != nil {
		return nil, fmt.Errorf("file %s: %w", fileID, err)
	}

	if _, err := publish.Transition(f.Status, publish.EventSubmit); err != nil {
		return nil, err
	}

	if err := publish.Validate(f, s.lc.ContentLimit()); err != nil {
		return nil, err
	}

	key := publish.IdempotencyKey(f)

	prior, err := s.claim(ctx, f, key)
	if err != nil {
		return nil, err
	}

	// 相同内容此前已成功提交：直接沿用远端结果，不再调用平台
	if prior != nil {
		return s.finish(ctx, f, key, publisher.Result{RemoteID: prior.RemoteID, RemoteURL: prior.RemoteURL}, nil)
	}

	res, callErr := s.publishers.Submit(ctx, publisher.NewRequest(f, key))

	return s.finish(ctx, f, key, res, callErr)
}

// claim 在一个事务中登记幂等记录并把帖子置为 posting.
// 返回非 nil 的 attempt 表示该内容已成功提交过.
func (s *PublishService) claim(ctx context.Context, f *model.File, key string) (*model.PublishAttempt, error) {
	var replay *model.PublishAttempt

	err := s.db.Tx(ctx, func(tx *db.Client) error {
		now := s.now()

		attempt, err := db.Get[model.PublishAttempt](ctx, tx, key)

		switch {
		case errors.Is(err, db.ErrNotFound):
			if err := db.Insert(ctx, tx, &model.PublishAttempt{
				Key:       key,
				FileID:    f.ID,
				Platform:  f.Platform,
				State:     model.AttemptInFlight,
				Attempts:  1,
				CreatedAt: now,
				UpdatedAt: now,
			}); err != nil {
				return err
			}
		case err != nil:
			return err
		case attempt.State == model.AttemptInFlight:
			return fmt.Errorf("%w: file %s", ErrSubmissionInFlight, f.ID)
		case attempt.State == model.AttemptSucceeded:
			replay = attempt
		default:
			if _, err := db.Update[model.PublishAttempt](ctx, tx, db.Query{Index: "id", Value: key}, map[string]any{
				"state":      model.AttemptInFlight,
				"attempts":   attempt.Attempts + 1,
				"error":      "",
				"updated_at": now,
			}); err != nil {
				return err
			}
		}

		n, err := db.Update[model.File](ctx, tx, withID(claimFrom(publish.EventSubmit), f.ID), map[string]any{
			"status":     model.StatusPosting,
			"updated_at": now,
		})
		if err != nil {
			return err
		}

		if n == 0 {
			return fmt.Errorf("%w: file %s changed state concurrently", publish.ErrInvalidTransition, f.ID)
		}

		return nil
	})

	return replay, err
}

func withID(q db.Query, id string) db.Query {
	q.Index, q.Value = "id", id

	return q
}

// finish 根据平台结果把 posting 推进到 posted 或 failed.
func (s *PublishService) finish(ctx context.Context, f *model.File, key string, res publisher.Result, callErr error) (*model.File, error) {
	event := publish.EventSucceed
	if callErr != nil {
		event = publish.EventFail
	}

	next, err := publish.Transition(model.StatusPosting, event)
	if err != nil {
		return nil, err
	}

	now := s.now()
	fileFields := map[string]any{"status": next, "updated_at": now}
	attemptFields := map[string]any{"updated_at": now}

	if callErr != nil {
		fileFields["error_message"] = callErr.Error()
		attemptFields["state"] = model.AttemptFailed
		attemptFields["error"] = callErr.Error()
	} else {
		fileFields["post_id"] = res.RemoteID
		fileFields["post_url"] = res.RemoteURL
		attemptFields["state"] = model.AttemptSucceeded
		attemptFields["remote_id"] = res.RemoteID
		attemptFields["remote_url"] = res.RemoteURL

		if s.lc.ClearErrorOnSuccess {
			fileFields["error_message"] = ""
		}
	}

	err = s.db.Tx(ctx, func(tx *db.Client) error {
		if _, err := db.Update[model.PublishAttempt](ctx, tx, db.Query{Index: "id", Value: key}, attemptFields); err != nil {
			return err
		}

		n, err := db.Update[model.File](ctx, tx, db.Query{
			Index: "id", Value: f.ID,
			Where: "status = ?", Args: []any{model.StatusPosting},
		}, fileFields)
		if err != nil {
			return err
		}

		if n == 0 {
			return fmt.Errorf("%w: file %s left posting concurrently", publish.ErrInvalidTransition, f.ID)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	l := nlog.Logger().With().Str("file", f.ID).Str("platform", f.Platform).Str("key", key).Logger()

	if callErr != nil {
		l.Warn().Err(callErr).Msg("post submission failed")
		emit(ctx, &s.base, s.events.Post.Failed, queue.PostFailed, queue.PostFailedPayload{
			FileID: f.ID, Platform: f.Platform, Error: callErr.Error(), Key: key,
		})
	} else {
		l.Info().Str("post_id", res.RemoteID).Msg("post submitted")
		emit(ctx, &s.base, s.events.Post.Posted, queue.PostPosted, queue.PostPostedPayload{
			FileID: f.ID, Platform: f.Platform, PostID: res.RemoteID, PostURL: res.RemoteURL, Key: key,
		})
	}

	return db.Get[model.File](ctx, s.db, f.ID)
}

// ProcessDuePosts 提交所有 scheduled 且 scheduled_at <= now 的帖子，最早的优先.
// 按 (scheduled_at, id) 游标分页扫描，本轮跳过的帖子不会占用后续批次.
// 校验失败或已被其他提交抢占的帖子计入 Skipped.
func (s *PublishService) ProcessDuePosts(ctx context.Context) (res types.DueResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "publish.process_due")
	defer func() { tracing.EndSpan(span, err) }()

	if err := s.ready(); err != nil {
		return res, err
	}

	var (
		errs     []error
		now      = s.now()
		batch    = s.lc.BatchSize()
		cursorAt time.Time
		cursorID string
	)

	for {
		if err := ctx.Err(); err != nil {
			return res, errors.Join(append(errs, err)...)
		}

		q := db.Query{
			Index: "status",
			Value: model.StatusScheduled,
			Where: "scheduled_at <= ?",
			Args:  []any{now},
			Order: "scheduled_at ASC, id ASC",
			Limit: batch,
		}

		if cursorID != "" {
			q.Where += " AND (scheduled_at > ? OR (scheduled_at = ? AND id > ?))"
			q.Args = append(q.Args, cursorAt, cursorAt, cursorID)
		}

		due, err := db.Find[model.File](ctx, s.db, q)
		if err != nil {
			return res, errors.Join(append(errs, err)...)
		}

		res.Scanned += len(due)

		for i := range due {
			errs = append(errs, s.submitDue(ctx, &res, due[i].ID))
		}

		if len(due) < batch {
			break
		}

		last := due[len(due)-1]
		cursorAt, cursorID = *last.ScheduledAt, last.ID
	}

	return res, errors.Join(errs...)
}

// submitDue 提交单个到期帖子并累计结果，只有意外错误才返回.
func (s *PublishService) submitDue(ctx context.Context, res *types.DueResult, fileID string) error {
	f, err := s.Submit(ctx, fileID)

	switch {
	case err == nil && f.Status == model.StatusPosted:
		res.Posted++
	case err == nil:
		res.Failed++
	case errors.Is(err, publish.ErrValidation),
		errors.Is(err, publish.ErrInvalidTransition),
		errors.Is(err, ErrSubmissionInFlight),
		errors.Is(err, db.ErrNotFound):
		res.Skipped++

		nlog.Logger().Warn().Err(err).Str("file", fileID).Msg("due post skipped")
	default:
		return fmt.Errorf("submit %s: %w", fileID, err)
	}

	return nil
}

// ReconcileStuck 把超过 olderThan 仍停留在 posting 的帖子标记为 failed，
// 对应的进行中幂等记录同时置为 failed. 不会重新提交.
func (s *PublishService) ReconcileStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	if olderThan <= 0 {
		return 0, fmt.Errorf("%w: older than must be positive", ErrInvalidArgument)
	}

	now := s.now()

	stuck, err := db.Find[model.File](ctx, s.db, db.Query{
		Index: "status",
		Value: model.StatusPosting,
		Where: "updated_at < ?",
		Args:  []any{now.Add(-olderThan)},
	})
	if err != nil {
		return 0, err
	}

	var reconciled int

	for i := range stuck {
		f := &stuck[i]

		var claimed bool

		err := s.db.Tx(ctx, func(tx *db.Client) error {
			n, err := db.Update[model.File](ctx, tx, db.Query{
				Index: "id", Value: f.ID,
				Where: "status = ?", Args: []any{model.StatusPosting},
			}, map[string]any{
				"status":        model.StatusFailed,
				"error_message": UnknownOutcome,
				"updated_at":    now,
			})
			if err != nil || n == 0 {
				return err
			}

			claimed = true

			_, err = db.Update[model.PublishAttempt](ctx, tx, db.Query{
				Index: "file_id", Value: f.ID,
				Where: "state = ?", Args: []any{model.AttemptInFlight},
			}, map[string]any{
				"state":      model.AttemptFailed,
				"error":      UnknownOutcome,
				"updated_at": now,
			})

			return err
		})
		if err != nil {
			return reconciled, fmt.Errorf("reconcile %s: %w", f.ID, err)
		}

		if !claimed {
			continue
		}

		reconciled++

		emit(ctx, &s.base, s.events.Post.Failed, queue.PostFailed, queue.PostFailedPayload{
			FileID: f.ID, Platform: f.Platform, Error: UnknownOutcome,
		})
	}

	nlog.Logger().Info().Int("reconciled", reconciled).Dur("older_than", olderThan).Msg("stuck posts reconciled")

	return reconciled, nil
}
