package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/postvault/pkg/context"
	"github.com/yeisme/postvault/pkg/internal/service"
	"github.com/yeisme/postvault/pkg/internal/types"
	"github.com/yeisme/postvault/pkg/log"
)

// CreateProject 创建项目.
//
//	@Summary	创建项目
//	@Tags		项目
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.CreateProjectRequest	true	"项目信息"
//	@Success	201		{object}	model.Project
//	@Failure	422		{object}	ErrorResponse
//	@Router		/api/v1/projects [post]
func CreateProject(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req types.CreateProjectRequest
	if !bindJSON(c, &req, false) {
		return
	}

	ctx := c.Request.Context()

	p, err := service.NewProjectService(ctx).Create(ctx, user, req)
	if err != nil {
		respondError(c, "create project failed", err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

// ListProjects 列出当前用户的项目.
//
//	@Summary	项目列表
//	@Tags		项目
//	@Produce	json
//	@Param		limit	query		int	false	"返回数量上限"
//	@Success	200		{object}	types.ProjectListResponse
//	@Router		/api/v1/projects [get]
func ListProjects(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	resp, err := service.NewProjectService(ctx).List(ctx, user, intQuery(c, "limit", 0))
	if err != nil {
		respondError(c, "list projects failed", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetProject 读取项目.
//
//	@Summary	项目详情
//	@Tags		项目
//	@Produce	json
//	@Param		id	path		string	true	"项目ID"
//	@Success	200	{object}	model.Project
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/v1/projects/{id} [get]
func GetProject(c *gin.Context) {
	ctx := c.Request.Context()

	p, err := service.NewProjectService(ctx).Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, "get project failed", err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// UpdateProject 部分更新项目.
//
//	@Summary	更新项目
//	@Tags		项目
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string						true	"项目ID"
//	@Param		body	body		types.UpdateProjectRequest	true	"待更新字段"
//	@Success	200		{object}	model.Project
//	@Failure	404		{object}	ErrorResponse
//	@Router		/api/v1/projects/{id} [patch]
func UpdateProject(c *gin.Context) {
	var req types.UpdateProjectRequest
	if !bindJSON(c, &req, false) {
		return
	}

	ctx := c.Request.Context()

	p, err := service.NewProjectService(ctx).Update(ctx, c.Param("id"), req)
	if err != nil {
		respondError(c, "update project failed", err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// DeleteProject 将项目及其文件移入回收站，返回快照 ID.
//
//	@Summary	删除项目（移入回收站）
//	@Tags		项目
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string				true	"项目ID"
//	@Param		body	body		types.DeleteRequest	false	"删除人，缺省为当前用户"
//	@Success	200		{object}	types.RestoreResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/api/v1/projects/{id} [delete]
func DeleteProject(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req types.DeleteRequest
	if !bindJSON(c, &req, true) {
		return
	}

	if req.DeletedBy == "" {
		req.DeletedBy = user
	}

	ctx := c.Request.Context()

	trash := service.NewTrashService(ctx)

	snapID, err := trash.DeleteProject(ctx, c.Param("id"), req.DeletedBy)
	if err != nil {
		respondError(c, "delete project failed", err)
		return
	}

	forgetProjectDrafts(c, trash, snapID)

	c.JSON(http.StatusOK, types.RestoreResponse{ID: snapID})
}

// ListProjectFiles 列出项目下的在线文件.
//
//	@Summary	项目文件列表
//	@Tags		项目
//	@Produce	json
//	@Param		id		path		string	true	"项目ID"
//	@Param		limit	query		int		false	"返回数量上限"
//	@Success	200		{object}	types.FileListResponse
//	@Router		/api/v1/projects/{id}/files [get]
func ListProjectFiles(c *gin.Context) {
	ctx := c.Request.Context()

	resp, err := service.NewFileService(ctx).ListByProject(ctx, c.Param("id"), intQuery(c, "limit", 0))
	if err != nil {
		respondError(c, "list files failed", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// forgetProjectDrafts 丢弃随项目移入回收站的文件的自动保存会话.
func forgetProjectDrafts(c *gin.Context, trash *service.TrashService, snapID string) {
	ctx := c.Request.Context()

	coord := ctxPkg.GetAutosave(ctx)
	if coord == nil {
		return
	}

	snap, err := trash.GetDeletedProject(ctx, snapID)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("snapshot", snapID).Msg("load project snapshot for draft cleanup")
		return
	}

	for _, f := range snap.AssociatedFiles {
		coord.Forget(f.ID)
	}
}
