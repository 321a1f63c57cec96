package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/postvault/pkg/context"
	"github.com/yeisme/postvault/pkg/internal/autosave"
	"github.com/yeisme/postvault/pkg/internal/service"
	"github.com/yeisme/postvault/pkg/internal/types"
)

// DraftState 自动保存会话状态.
type DraftState struct {
	FileID  string `json:"file_id"`
	Loaded  bool   `json:"loaded"`
	Pending bool   `json:"pending"`
}

func coordinator(c *gin.Context) (*autosave.Coordinator, bool) {
	coord := ctxPkg.GetAutosave(c.Request.Context())
	if coord == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: "autosave not enabled"})
		return nil, false
	}

	return coord, true
}

func draftState(coord *autosave.Coordinator, id string) DraftState {
	return DraftState{FileID: id, Loaded: coord.Loaded(id), Pending: coord.Pending(id)}
}

// OpenDraft 加载文件内容并开启自动保存会话.
//
//	@Summary	打开草稿
//	@Tags		草稿
//	@Produce	json
//	@Param		id	path		string	true	"文件ID"
//	@Success	200	{object}	model.File
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/v1/drafts/{id}/open [post]
func OpenDraft(c *gin.Context) {
	coord, ok := coordinator(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")

	f, err := service.NewFileService(ctx).Get(ctx, id)
	if err != nil {
		respondError(c, "open draft failed", err)
		return
	}

	coord.MarkLoaded(id)

	c.JSON(http.StatusOK, f)
}

// EditDraft 缓冲一次编辑，静默期结束后写入.
//
//	@Summary	编辑草稿
//	@Tags		草稿
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string			true	"文件ID"
//	@Param		body	body		types.FileDraft	true	"变更字段"
//	@Success	202		{object}	DraftState
//	@Failure	409		{object}	ErrorResponse
//	@Router		/api/v1/drafts/{id} [patch]
func EditDraft(c *gin.Context) {
	coord, ok := coordinator(c)
	if !ok {
		return
	}

	var draft types.FileDraft
	if !bindJSON(c, &draft, false) {
		return
	}

	id := c.Param("id")
	if err := coord.Edit(id, draft); err != nil {
		respondError(c, "edit draft failed", err)
		return
	}

	c.JSON(http.StatusAccepted, draftState(coord, id))
}

// GetDraftState 查询会话状态.
//
//	@Summary	草稿会话状态
//	@Tags		草稿
//	@Produce	json
//	@Param		id	path		string	true	"文件ID"
//	@Success	200	{object}	DraftState
//	@Router		/api/v1/drafts/{id} [get]
func GetDraftState(c *gin.Context) {
	coord, ok := coordinator(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, draftState(coord, c.Param("id")))
}

// FlushDraft 立即写入缓冲的编辑.
//
//	@Summary	立即保存草稿
//	@Tags		草稿
//	@Produce	json
//	@Param		id	path		string	true	"文件ID"
//	@Success	200	{object}	DraftState
//	@Failure	409	{object}	ErrorResponse
//	@Router		/api/v1/drafts/{id}/flush [post]
func FlushDraft(c *gin.Context) {
	coord, ok := coordinator(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if err := coord.Flush(c.Request.Context(), id); err != nil {
		respondError(c, "flush draft failed", err)
		return
	}

	c.JSON(http.StatusOK, draftState(coord, id))
}

// CloseDraft 写入剩余编辑并结束会话.
//
//	@Summary	关闭草稿
//	@Tags		草稿
//	@Produce	json
//	@Param		id	path	string	true	"文件ID"
//	@Success	204
//	@Failure	409	{object}	ErrorResponse
//	@Router		/api/v1/drafts/{id} [delete]
func CloseDraft(c *gin.Context) {
	coord, ok := coordinator(c)
	if !ok {
		return
	}

	if err := coord.Release(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "close draft failed", err)
		return
	}

	c.Status(http.StatusNoContent)
}
