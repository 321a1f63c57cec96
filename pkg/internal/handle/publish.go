package handle

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/postvault/pkg/internal/service"
	"github.com/yeisme/postvault/pkg/internal/types"
)

// SchedulePost 设置（或修改）帖子的定时发布时间.
//
//	@Summary	定时发布
//	@Tags		发布
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string						true	"文件ID"
//	@Param		body	body		types.SchedulePostRequest	true	"发布时间与覆盖字段"
//	@Success	200		{object}	model.File
//	@Failure	409		{object}	ErrorResponse
//	@Failure	422		{object}	ErrorResponse
//	@Router		/api/v1/publish/{id}/schedule [post]
func SchedulePost(c *gin.Context) {
	var req types.SchedulePostRequest
	if !bindJSON(c, &req, false) {
		return
	}

	ctx := c.Request.Context()

	f, err := service.NewPublishService(ctx).SchedulePost(ctx, c.Param("id"), req)
	if err != nil {
		respondError(c, "schedule post failed", err)
		return
	}

	c.JSON(http.StatusOK, f)
}

// SubmitPost 立即提交帖子；平台失败记录在返回的文件上，不作为请求错误.
//
//	@Summary	立即发布
//	@Tags		发布
//	@Produce	json
//	@Param		id	path		string	true	"文件ID"
//	@Success	200	{object}	model.File
//	@Failure	409	{object}	ErrorResponse
//	@Failure	422	{object}	ErrorResponse
//	@Router		/api/v1/publish/{id}/submit [post]
func SubmitPost(c *gin.Context) {
	ctx := c.Request.Context()

	f, err := service.NewPublishService(ctx).Submit(ctx, c.Param("id"))
	if err != nil {
		respondError(c, "submit post failed", err)
		return
	}

	c.JSON(http.StatusOK, f)
}

// ProcessDuePosts 手动触发一次到期帖子发布.
//
//	@Summary	处理到期帖子
//	@Tags		发布
//	@Produce	json
//	@Success	200	{object}	types.DueResult
//	@Router		/api/v1/publish/due [post]
func ProcessDuePosts(c *gin.Context) {
	ctx := c.Request.Context()

	res, err := service.NewPublishService(ctx).ProcessDuePosts(ctx)
	if err != nil {
		respondError(c, "process due posts failed", err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// ReconcileStuck 将长时间停留在 posting 的帖子标记为失败.
//
//	@Summary	修复卡住的发布
//	@Tags		发布
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.ReconcileRequest	true	"停留时长阈值（分钟）"
//	@Success	200		{object}	types.TrashActionResponse
//	@Failure	422		{object}	ErrorResponse
//	@Router		/api/v1/publish/reconcile [post]
func ReconcileStuck(c *gin.Context) {
	var req types.ReconcileRequest
	if !bindJSON(c, &req, false) {
		return
	}

	ctx := c.Request.Context()

	n, err := service.NewPublishService(ctx).ReconcileStuck(ctx, time.Duration(req.OlderThanMinutes)*time.Minute)
	if err != nil {
		respondError(c, "reconcile stuck posts failed", err)
		return
	}

	c.JSON(http.StatusOK, types.TrashActionResponse{Affected: n, Message: "marked failed"})
}
