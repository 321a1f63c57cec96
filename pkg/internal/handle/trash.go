package handle

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/postvault/pkg/internal/service"
	"github.com/yeisme/postvault/pkg/internal/types"
)

// ListDeletedProjects 列出当前用户回收站中的项目，按删除时间倒序.
//
//	@Summary	回收站项目列表
//	@Tags		回收站
//	@Produce	json
//	@Param		limit	query		int	false	"返回数量上限"
//	@Success	200		{object}	types.DeletedProjectsResponse
//	@Router		/api/v1/trash/projects [get]
func ListDeletedProjects(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	rows, err := service.NewTrashService(ctx).GetDeletedProjects(ctx, user, intQuery(c, "limit", 0))
	if err != nil {
		respondError(c, "list deleted projects failed", err)
		return
	}

	c.JSON(http.StatusOK, types.DeletedProjectsResponse{Total: len(rows), Items: rows})
}

// ListDeletedFiles 列出回收站中的文件；user_id 优先于 project_id，都缺省时取当前用户.
//
//	@Summary	回收站文件列表
//	@Tags		回收站
//	@Produce	json
//	@Param		user_id		query		string	false	"删除人"
//	@Param		project_id	query		string	false	"原项目ID"
//	@Param		limit		query		int		false	"返回数量上限"
//	@Success	200			{object}	types.DeletedFilesResponse
//	@Failure	422			{object}	ErrorResponse
//	@Router		/api/v1/trash/files [get]
func ListDeletedFiles(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var q types.TrashListQuery
	if !bindQuery(c, &q) {
		return
	}

	if q.UserID == "" && q.ProjectID == "" {
		q.UserID = user
	}

	ctx := c.Request.Context()

	rows, err := service.NewTrashService(ctx).GetDeletedFiles(ctx, q)
	if err != nil {
		respondError(c, "list deleted files failed", err)
		return
	}

	c.JSON(http.StatusOK, types.DeletedFilesResponse{Total: len(rows), Items: rows})
}

// GetTrashStats 当前用户的回收站统计.
//
//	@Summary	回收站统计
//	@Tags		回收站
//	@Produce	json
//	@Success	200	{object}	types.TrashStats
//	@Router		/api/v1/trash/stats [get]
func GetTrashStats(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	stats, err := service.NewTrashService(ctx).GetTrashStats(ctx, user)
	if err != nil {
		respondError(c, "trash stats failed", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// RestoreProject 从快照恢复项目及其文件.
//
//	@Summary	恢复项目
//	@Tags		回收站
//	@Produce	json
//	@Param		id	path		string	true	"快照ID"
//	@Success	200	{object}	types.RestoreResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/v1/trash/projects/{id}/restore [post]
func RestoreProject(c *gin.Context) {
	snapshotAction(c, "restore project failed", func(ctx context.Context, svc *service.TrashService, id string) (string, error) {
		return svc.RestoreProject(ctx, id)
	})
}

// RestoreFile 从快照恢复文件，可指定目标项目.
//
//	@Summary	恢复文件
//	@Tags		回收站
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string						true	"快照ID"
//	@Param		body	body		types.RestoreFileRequest	false	"目标项目，缺省为原项目"
//	@Success	200		{object}	types.RestoreResponse
//	@Failure	404		{object}	ErrorResponse
//	@Failure	409		{object}	ErrorResponse
//	@Router		/api/v1/trash/files/{id}/restore [post]
func RestoreFile(c *gin.Context) {
	var req types.RestoreFileRequest
	if !bindJSON(c, &req, true) {
		return
	}

	snapshotAction(c, "restore file failed", func(ctx context.Context, svc *service.TrashService, id string) (string, error) {
		return svc.RestoreFile(ctx, id, req.TargetProjectID)
	})
}

// PurgeProject 永久删除项目快照及其文件快照.
//
//	@Summary	永久删除项目
//	@Tags		回收站
//	@Param		id	path	string	true	"快照ID"
//	@Success	204
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/v1/trash/projects/{id} [delete]
func PurgeProject(c *gin.Context) {
	purge(c, "purge project failed", (*service.TrashService).PermanentlyDeleteProject)
}

// PurgeFile 永久删除文件快照.
//
//	@Summary	永久删除文件
//	@Tags		回收站
//	@Param		id	path	string	true	"快照ID"
//	@Success	204
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/v1/trash/files/{id} [delete]
func PurgeFile(c *gin.Context) {
	purge(c, "purge file failed", (*service.TrashService).PermanentlyDeleteFile)
}

// EmptyTrash 清空当前用户的回收站.
//
//	@Summary	清空回收站
//	@Tags		回收站
//	@Produce	json
//	@Success	200	{object}	types.CleanupResult
//	@Router		/api/v1/trash [delete]
func EmptyTrash(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	res, err := service.NewTrashService(ctx).EmptyTrash(ctx, user)
	if err != nil {
		respondError(c, "empty trash failed", err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// CleanupTrash 立即清理超过保留期的回收站条目（与定时任务相同）.
//
//	@Summary	清理过期回收站条目
//	@Tags		回收站
//	@Produce	json
//	@Success	200	{object}	types.CleanupResult
//	@Router		/api/v1/trash/cleanup [post]
func CleanupTrash(c *gin.Context) {
	ctx := c.Request.Context()

	res, err := service.NewTrashService(ctx).CleanupExpiredTrash(ctx)
	if err != nil {
		respondError(c, "cleanup trash failed", err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// snapshotAction 抽取公共逻辑：取 path id、调用恢复动作、输出新 ID.
func snapshotAction(c *gin.Context, msg string, act func(ctx context.Context, svc *service.TrashService, id string) (string, error)) {
	ctx := c.Request.Context()

	id, err := act(ctx, service.NewTrashService(ctx), c.Param("id"))
	if err != nil {
		respondError(c, msg, err)
		return
	}

	c.JSON(http.StatusOK, types.RestoreResponse{ID: id})
}

func purge(c *gin.Context, msg string, act func(*service.TrashService, context.Context, string) error) {
	ctx := c.Request.Context()

	if err := act(service.NewTrashService(ctx), ctx, c.Param("id")); err != nil {
		respondError(c, msg, err)
		return
	}

	c.Status(http.StatusNoContent)
}
