package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/postvault/pkg/context"
	"github.com/yeisme/postvault/pkg/internal/service"
	"github.com/yeisme/postvault/pkg/internal/types"
)

// CreateFile 在项目下创建草稿帖子.
//
//	@Summary	创建文件
//	@Tags		文件
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.CreateFileRequest	true	"文件信息"
//	@Success	201		{object}	model.File
//	@Failure	404		{object}	ErrorResponse
//	@Failure	422		{object}	ErrorResponse
//	@Router		/api/v1/files [post]
func CreateFile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req types.CreateFileRequest
	if !bindJSON(c, &req, false) {
		return
	}

	ctx := c.Request.Context()

	f, err := service.NewFileService(ctx).Create(ctx, user, req)
	if err != nil {
		respondError(c, "create file failed", err)
		return
	}

	c.JSON(http.StatusCreated, f)
}

// GetFile 读取文件.
//
//	@Summary	文件详情
//	@Tags		文件
//	@Produce	json
//	@Param		id	path		string	true	"文件ID"
//	@Success	200	{object}	model.File
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/v1/files/{id} [get]
func GetFile(c *gin.Context) {
	ctx := c.Request.Context()

	f, err := service.NewFileService(ctx).Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, "get file failed", err)
		return
	}

	c.JSON(http.StatusOK, f)
}

// DeleteFile 将文件移入回收站，返回快照 ID.
//
//	@Summary	删除文件（移入回收站）
//	@Tags		文件
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string				true	"文件ID"
//	@Param		body	body		types.DeleteRequest	false	"删除人，缺省为当前用户"
//	@Success	200		{object}	types.RestoreResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/api/v1/files/{id} [delete]
func DeleteFile(c *gin.Context) {
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

	snapID, err := service.NewTrashService(ctx).DeleteFile(ctx, c.Param("id"), req.DeletedBy)
	if err != nil {
		respondError(c, "delete file failed", err)
		return
	}

	if coord := ctxPkg.GetAutosave(ctx); coord != nil {
		coord.Forget(c.Param("id"))
	}

	c.JSON(http.StatusOK, types.RestoreResponse{ID: snapID})
}
