package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/yeisme/postvault/pkg/cache"
	"github.com/yeisme/postvault/pkg/internal/model"
	"github.com/yeisme/postvault/pkg/internal/storage/db"
	"github.com/yeisme/postvault/pkg/internal/types"
	nlog "github.com/yeisme/postvault/pkg/log"
	"github.com/yeisme/postvault/pkg/metrics"
	"github.com/yeisme/postvault/pkg/queue"
	"github.com/yeisme/postvault/pkg/tracing"
)

const day = 24 * time.Hour

// TrashService 回收站：在线实体与快照之间的移动、恢复、永久删除与过期清理.
//
// 级联操作在单个事务中完成；文件步骤总是先于父项目步骤执行.
type TrashService struct{ base }

func NewTrashService(c context.Context) *TrashService { return &TrashService{newBase(c)} }

// DeleteProject 把项目及其全部文件移入回收站，返回项目快照 ID.
func (t *TrashService) DeleteProject(ctx context.Context, projectID, deletedBy string) (snapID string, err error) {
	ctx, span := tracing.StartSpan(ctx, "trash.delete_project")
	defer func() {
		metrics.TrashOps.WithLabelValues("delete_project", metrics.Result(err)).Inc()
		tracing.EndSpan(span, err)
	}()

	if err := t.ready(); err != nil {
		return "", err
	}

	var payload queue.ProjectTrashedPayload

	err = t.db.Tx(ctx, func(tx *db.Client) error {
		p, err := db.Get[model.Project](ctx, tx, projectID)
		if err != nil {
			return fmt.Errorf("project %s: %w", projectID, err)
		}

		files, err := db.Find[model.File](ctx, tx, db.Query{Index: "project_id", Value: projectID})
		if err != nil {
			return err
		}

		now := t.now()
		by := deletedBy
		if by == "" {
			by = p.Owner
		}

		assoc := make([]model.AssociatedFile, 0, len(files))
		fileIDs := make([]string, 0, len(files))

		for i := range files {
			f := &files[i]

			if err := db.Insert(ctx, tx, &model.TrashedFile{
				ID:                newID(now),
				OriginalID:        f.ID,
				FileFields:        f.FileFields,
				DeletedAt:         now,
				DeletedBy:         by,
				ParentProjectName: p.Name,
			}); err != nil {
				return err
			}

			if err := db.Delete[model.File](ctx, tx, f.ID); err != nil {
				return err
			}

			assoc = append(assoc, model.AssociatedFile{ID: f.ID, Name: f.Name, Type: f.Type, Size: f.Size})
			fileIDs = append(fileIDs, f.ID)
		}

		snap := &model.TrashedProject{
			ID:              newID(now),
			OriginalID:      p.ID,
			ProjectFields:   p.ProjectFields,
			DeletedAt:       now,
			DeletedBy:       by,
			AssociatedFiles: assoc,
		}
		if err := db.Insert(ctx, tx, snap); err != nil {
			return err
		}

		snapID = snap.ID
		payload = queue.ProjectTrashedPayload{ProjectID: p.ID, SnapshotID: snap.ID, Name: p.Name, DeletedBy: by, FileIDs: fileIDs}

		return db.Delete[model.Project](ctx, tx, p.ID)
	})
	if err != nil {
		return "", err
	}

	t.invalidateStats(ctx)
	emit(ctx, &t.base, t.events.Trash.Trashed, queue.ProjectTrashed, payload)

	nlog.Logger().Info().Str("project", projectID).Str("snapshot", snapID).Int("files", len(payload.FileIDs)).Msg("project moved to trash")

	return snapID, nil
}

// DeleteFile 把单个文件移入回收站，返回文件快照 ID. 父项目缺失时使用占位名称.
func (t *TrashService) DeleteFile(ctx context.Context, fileID, deletedBy string) (snapID string, err error) {
	ctx, span := tracing.StartSpan(ctx, "trash.delete_file")
	defer func() {
		metrics.TrashOps.WithLabelValues("delete_file", metrics.Result(err)).Inc()
		tracing.EndSpan(span, err)
	}()

	if err := t.ready(); err != nil {
		return "", err
	}

	var payload queue.FileTrashedPayload

	err = t.db.Tx(ctx, func(tx *db.Client) error {
		f, err := db.Get[model.File](ctx, tx, fileID)
		if err != nil {
			return fmt.Errorf("file %s: %w", fileID, err)
		}

		parentName := t.lc.PlaceholderProjectName()

		switch p, err := db.Get[model.Project](ctx, tx, f.ProjectID); {
		case err == nil && p.Name != "":
			parentName = p.Name
		case err != nil && !errors.Is(err, db.ErrNotFound):
			return err
		}

		now := t.now()
		by := deletedBy
		if by == "" {
			by = f.Owner
		}

		snap := &model.TrashedFile{
			ID:                newID(now),
			OriginalID:        f.ID,
			FileFields:        f.FileFields,
			DeletedAt:         now,
			DeletedBy:         by,
			ParentProjectName: parentName,
		}
		if err := db.Insert(ctx, tx, snap); err != nil {
			return err
		}

		snapID = snap.ID
		payload = queue.FileTrashedPayload{FileID: f.ID, SnapshotID: snap.ID, ProjectID: f.ProjectID, DeletedBy: by, Size: f.Size}

		return db.Delete[model.File](ctx, tx, f.ID)
	})
	if err != nil {
		return "", err
	}

	t.invalidateStats(ctx)
	emit(ctx, &t.base, t.events.Trash.Trashed, queue.FileTrashed, payload)

	return snapID, nil
}

// RestoreProject 以新 ID 重建项目，并把原项目下的文件快照全部恢复到新项目.
func (t *TrashService) RestoreProject(ctx context.Context, snapshotID string) (projectID string, err error) {
	ctx, span := tracing.StartSpan(ctx, "trash.restore_project")
	defer func() {
		metrics.TrashOps.WithLabelValues("restore_project", metrics.Result(err)).Inc()
		tracing.EndSpan(span, err)
	}()

	if err := t.ready(); err != nil {
		return "", err
	}

	var payload queue.ProjectRestoredPayload

	err = t.db.Tx(ctx, func(tx *db.Client) error {
		snap, err := db.Get[model.TrashedProject](ctx, tx, snapshotID)
		if err != nil {
			return fmt.Errorf("trashed project %s: %w", snapshotID, err)
		}

		now := t.now()
		p := &model.Project{ID: newID(now), ProjectFields: snap.ProjectFields}
		p.UpdatedAt = now

		if err := db.Insert(ctx, tx, p); err != nil {
			return err
		}

		files, err := db.Find[model.TrashedFile](ctx, tx, db.Query{Index: "project_id", Value: snap.OriginalID})
		if err != nil {
			return err
		}

		for i := range files {
			tf := &files[i]

			f := &model.File{ID: newID(now), FileFields: tf.FileFields}
			f.ProjectID = p.ID

			if err := db.Insert(ctx, tx, f); err != nil {
				return err
			}

			if err := db.Delete[model.TrashedFile](ctx, tx, tf.ID); err != nil {
				return err
			}
		}

		projectID = p.ID
		payload = queue.ProjectRestoredPayload{SnapshotID: snap.ID, OriginalID: snap.OriginalID, ProjectID: p.ID, Files: len(files)}

		return db.Delete[model.TrashedProject](ctx, tx, snap.ID)
	})
	if err != nil {
		return "", err
	}

	t.invalidateStats(ctx)
	emit(ctx, &t.base, t.events.Trash.Restored, queue.ProjectRestored, payload)

	return projectID, nil
}

// RestoreFile 把文件快照恢复到 targetProjectID（为空时恢复到原项目）.
// 目标项目不存在时返回 ErrTargetMissing，快照保持不变.
func (t *TrashService) RestoreFile(ctx context.Context, snapshotID, targetProjectID string) (fileID string, err error) {
	ctx, span := tracing.StartSpan(ctx, "trash.restore_file")
	defer func() {
		metrics.TrashOps.WithLabelValues("restore_file", metrics.Result(err)).Inc()
		tracing.EndSpan(span, err)
	}()

	if err := t.ready(); err != nil {
		return "", err
	}

	var payload queue.FileRestoredPayload

	err = t.db.Tx(ctx, func(tx *db.Client) error {
		snap, err := db.Get[model.TrashedFile](ctx, tx, snapshotID)
		if err != nil {
			return fmt.Errorf("trashed file %s: %w", snapshotID, err)
		}

		target := targetProjectID
		if target == "" {
			target = snap.ProjectID
		}

		if _, err := db.Get[model.Project](ctx, tx, target); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return fmt.Errorf("project %s: %w", target, ErrTargetMissing)
			}

			return err
		}

		f := &model.File{ID: newID(t.now()), FileFields: snap.FileFields}
		f.ProjectID = target

		if err := db.Insert(ctx, tx, f); err != nil {
			return err
		}

		fileID = f.ID
		payload = queue.FileRestoredPayload{SnapshotID: snap.ID, OriginalID: snap.OriginalID, FileID: f.ID, ProjectID: target}

		return db.Delete[model.TrashedFile](ctx, tx, snap.ID)
	})
	if err != nil {
		return "", err
	}

	t.invalidateStats(ctx)
	emit(ctx, &t.base, t.events.Trash.Restored, queue.FileRestored, payload)

	return fileID, nil
}

// PermanentlyDeleteProject 永久删除项目快照及其名下的全部文件快照. 不可恢复.
func (t *TrashService) PermanentlyDeleteProject(ctx context.Context, snapshotID string) (err error) {
	ctx, span := tracing.StartSpan(ctx, "trash.purge_project")
	defer func() {
		metrics.TrashOps.WithLabelValues("purge_project", metrics.Result(err)).Inc()
		tracing.EndSpan(span, err)
	}()

	if err := t.ready(); err != nil {
		return err
	}

	var snap *model.TrashedProject

	err = t.db.Tx(ctx, func(tx *db.Client) error {
		found, err := db.Get[model.TrashedProject](ctx, tx, snapshotID)
		if err != nil {
			return fmt.Errorf("trashed project %s: %w", snapshotID, err)
		}

		snap = found
		_, err = purgeProject(ctx, tx, found)

		return err
	})
	if err != nil {
		return err
	}

	t.invalidateStats(ctx)
	emit(ctx, &t.base, t.events.Trash.Purged, queue.TrashPurged, queue.TrashPurgedPayload{
		Kind: queue.EntityProject, SnapshotID: snap.ID, OriginalID: snap.OriginalID,
	})

	return nil
}

// PermanentlyDeleteFile 永久删除单个文件快照及其发布幂等记录. 不可恢复.
func (t *TrashService) PermanentlyDeleteFile(ctx context.Context, snapshotID string) (err error) {
	ctx, span := tracing.StartSpan(ctx, "trash.purge_file")
	defer func() {
		metrics.TrashOps.WithLabelValues("purge_file", metrics.Result(err)).Inc()
		tracing.EndSpan(span, err)
	}()

	if err := t.ready(); err != nil {
		return err
	}

	var snap *model.TrashedFile

	err = t.db.Tx(ctx, func(tx *db.Client) error {
		found, err := db.Get[model.TrashedFile](ctx, tx, snapshotID)
		if err != nil {
			return fmt.Errorf("trashed file %s: %w", snapshotID, err)
		}

		snap = found

		return purgeFile(ctx, tx, found)
	})
	if err != nil {
		return err
	}

	t.invalidateStats(ctx)
	emit(ctx, &t.base, t.events.Trash.Purged, queue.TrashPurged, queue.TrashPurgedPayload{
		Kind: queue.EntityFile, SnapshotID: snap.ID, OriginalID: snap.OriginalID,
	})

	return nil
}

// purgeProject 删除项目快照与其文件快照，返回删除的文件快照数.
func purgeProject(ctx context.Context, tx *db.Client, snap *model.TrashedProject) (int, error) {
	files, err := db.Find[model.TrashedFile](ctx, tx, db.Query{Index: "project_id", Value: snap.OriginalID})
	if err != nil {
		return 0, err
	}

	for i := range files {
		if err := purgeFile(ctx, tx, &files[i]); err != nil {
			return 0, err
		}
	}

	if err := db.Delete[model.TrashedProject](ctx, tx, snap.ID); err != nil {
		return 0, err
	}

	return len(files), nil
}

func purgeFile(ctx context.Context, tx *db.Client, snap *model.TrashedFile) error {
	if _, err := db.DeleteWhere[model.PublishAttempt](ctx, tx, db.Query{Index: "file_id", Value: snap.OriginalID}); err != nil {
		return err
	}

	return db.Delete[model.TrashedFile](ctx, tx, snap.ID)
}

// CleanupExpiredTrash 永久删除 deleted_at 严格早于 now - 保留期 的全部快照.
// 可重复执行；单条失败不影响其余条目，错误合并返回.
func (t *TrashService) CleanupExpiredTrash(ctx context.Context) (res types.CleanupResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "trash.cleanup_expired")
	defer func() { tracing.EndSpan(span, err) }()

	if err := t.ready(); err != nil {
		return res, err
	}

	cutoff := t.now().Add(-t.lc.TrashTTL())
	expired := db.Query{Where: "deleted_at < ?", Args: []any{cutoff}, Order: "deleted_at ASC"}

	projects, err := db.Find[model.TrashedProject](ctx, t.db, expired)
	if err != nil {
		return res, err
	}

	var errs []error

	for i := range projects {
		snap := &projects[i]

		var n int

		err := t.db.Tx(ctx, func(tx *db.Client) (err error) {
			n, err = purgeProject(ctx, tx, snap)
			return err
		})

		switch {
		case err == nil:
			res.DeletedProjects++
			res.DeletedFiles += n
		case !errors.Is(err, db.ErrNotFound):
			errs = append(errs, fmt.Errorf("purge project snapshot %s: %w", snap.ID, err))
		}
	}

	// 项目级联之后再查询，已被级联删除的文件快照不会再次匹配
	files, err := db.Find[model.TrashedFile](ctx, t.db, expired)
	if err != nil {
		return res, errors.Join(append(errs, err)...)
	}

	for i := range files {
		snap := &files[i]

		err := t.db.Tx(ctx, func(tx *db.Client) error { return purgeFile(ctx, tx, snap) })

		switch {
		case err == nil:
			res.DeletedFiles++
		case !errors.Is(err, db.ErrNotFound):
			errs = append(errs, fmt.Errorf("purge file snapshot %s: %w", snap.ID, err))
		}
	}

	metrics.TrashSwept.WithLabelValues("project").Add(float64(res.DeletedProjects))
	metrics.TrashSwept.WithLabelValues("file").Add(float64(res.DeletedFiles))

	if res.DeletedProjects+res.DeletedFiles > 0 {
		t.invalidateStats(ctx)
		emit(ctx, &t.base, t.events.Trash.Swept, queue.TrashSwept, queue.TrashSweptPayload{
			DeletedProjects: res.DeletedProjects,
			DeletedFiles:    res.DeletedFiles,
			Cutoff:          cutoff,
		})
	}

	nlog.Logger().Info().
		Int("projects", res.DeletedProjects).
		Int("files", res.DeletedFiles).
		Time("cutoff", cutoff).
		Msg("expired trash cleaned")

	return res, errors.Join(errs...)
}

// EmptyTrash 永久删除 userID 删除的全部快照.
func (t *TrashService) EmptyTrash(ctx context.Context, userID string) (res types.CleanupResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "trash.empty")
	defer func() {
		metrics.TrashOps.WithLabelValues("empty", metrics.Result(err)).Inc()
		tracing.EndSpan(span, err)
	}()

	if err := t.ready(); err != nil {
		return res, err
	}

	if userID == "" {
		return res, fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}

	byUser := db.Query{Index: "deleted_by", Value: userID}

	err = t.db.Tx(ctx, func(tx *db.Client) error {
		projects, err := db.Find[model.TrashedProject](ctx, tx, byUser)
		if err != nil {
			return err
		}

		for i := range projects {
			n, err := purgeProject(ctx, tx, &projects[i])
			if err != nil {
				return err
			}

			res.DeletedProjects++
			res.DeletedFiles += n
		}

		files, err := db.Find[model.TrashedFile](ctx, tx, byUser)
		if err != nil {
			return err
		}

		for i := range files {
			if err := purgeFile(ctx, tx, &files[i]); err != nil {
				return err
			}

			res.DeletedFiles++
		}

		return nil
	})
	if err != nil {
		return types.CleanupResult{}, err
	}

	t.invalidateStats(ctx)

	return res, nil
}

// GetDeletedProject 读取单个项目快照.
func (t *TrashService) GetDeletedProject(ctx context.Context, snapshotID string) (*model.TrashedProject, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}

	return db.Get[model.TrashedProject](ctx, t.db, snapshotID)
}

// GetDeletedProjects 按删除时间倒序列出项目快照，userID 为空时返回全部.
func (t *TrashService) GetDeletedProjects(ctx context.Context, userID string, limit int) ([]model.TrashedProject, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}

	q := db.Query{Order: "deleted_at DESC", Limit: clampLimit(limit)}
	if userID != "" {
		q.Index, q.Value = "deleted_by", userID
	}

	return db.Find[model.TrashedProject](ctx, t.db, q)
}

// GetDeletedFiles 按删除时间倒序列出文件快照. 过滤条件依次检查 UserID、ProjectID，
// 只应用第一个非空的条件；都为空时返回全部.
func (t *TrashService) GetDeletedFiles(ctx context.Context, q types.TrashListQuery) ([]model.TrashedFile, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}

	dq := db.Query{Order: "deleted_at DESC", Limit: clampLimit(q.Limit)}

	switch {
	case q.UserID != "":
		dq.Index, dq.Value = "deleted_by", q.UserID
	case q.ProjectID != "":
		dq.Index, dq.Value = "project_id", q.ProjectID
	}

	return db.Find[model.TrashedFile](ctx, t.db, dq)
}

// GetTrashStats 回收站统计，userID 为空时统计全部. 结果按分钟缓存，回收站变化时失效.
func (t *TrashService) GetTrashStats(ctx context.Context, userID string) (types.TrashStats, error) {
	if err := t.ready(); err != nil {
		return types.TrashStats{}, err
	}

	now := t.now()

	return cache.GetOrSet(ctx, t.stats, statsKey(userID, now), func() (types.TrashStats, error) {
		return t.computeStats(ctx, userID, now)
	}, t.lc.StatsCacheTTL)
}

// statsKey 用户名经哈希后作为键，保证在 NATS KV 等后端中合法.
func statsKey(userID string, now time.Time) string {
	return strconv.FormatUint(xxhash.Sum64String(userID), 16) + "." + strconv.FormatInt(now.Unix()/60, 10)
}

func (t *TrashService) computeStats(ctx context.Context, userID string, now time.Time) (types.TrashStats, error) {
	var stats types.TrashStats

	q := db.Query{}
	if userID != "" {
		q.Index, q.Value = "deleted_by", userID
	}

	var err error

	if stats.ProjectCount, err = db.Count[model.TrashedProject](ctx, t.db, q); err != nil {
		return stats, err
	}

	if stats.FileCount, err = db.Count[model.TrashedFile](ctx, t.db, q); err != nil {
		return stats, err
	}

	if stats.TotalSize, err = db.Sum[model.TrashedFile](ctx, t.db, q, "size"); err != nil {
		return stats, err
	}

	oldest := q
	oldest.Order = "deleted_at ASC"

	var oldestAt time.Time

	if p, err := db.First[model.TrashedProject](ctx, t.db, oldest); err == nil {
		oldestAt = p.DeletedAt
	} else if !errors.Is(err, db.ErrNotFound) {
		return stats, err
	}

	if f, err := db.First[model.TrashedFile](ctx, t.db, oldest); err == nil {
		if oldestAt.IsZero() || f.DeletedAt.Before(oldestAt) {
			oldestAt = f.DeletedAt
		}
	} else if !errors.Is(err, db.ErrNotFound) {
		return stats, err
	}

	if !oldestAt.IsZero() {
		stats.OldestItemAgeDays = ageDays(now, oldestAt)
	}

	// 年龄 >= N 天 等价于 deleted_at <= now - N 天
	near := q
	near.Where, near.Args = "deleted_at <= ?", []any{now.Add(-time.Duration(t.lc.NearExpiryAgeDays()) * day)}

	nearProjects, err := db.Count[model.TrashedProject](ctx, t.db, near)
	if err != nil {
		return stats, err
	}

	nearFiles, err := db.Count[model.TrashedFile](ctx, t.db, near)
	if err != nil {
		return stats, err
	}

	stats.ItemsNearExpiryCount = nearProjects + nearFiles

	return stats, nil
}

// ageDays 整天数，向下取整.
func ageDays(now, deletedAt time.Time) int {
	if !now.After(deletedAt) {
		return 0
	}

	return int(now.Sub(deletedAt) / day)
}
