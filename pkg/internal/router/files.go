package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/postvault/pkg/internal/handle"
)

// RegisterFilesRoutes 注册文件（帖子）相关路由.
func RegisterFilesRoutes(g *gin.RouterGroup) {
	filesRoutes := g.Group("/files")
	{
		filesRoutes.POST("", handle.CreateFile)
		filesRoutes.GET("/:id", handle.GetFile)
		filesRoutes.DELETE("/:id", handle.DeleteFile) // 移入回收站
	}
}

// RegisterDraftRoutes 注册自动保存会话路由.
func RegisterDraftRoutes(g *gin.RouterGroup) {
	draftRoutes := g.Group("/drafts/:id")
	{
		draftRoutes.POST("/open", handle.OpenDraft)
		draftRoutes.GET("", handle.GetDraftState)
		draftRoutes.PATCH("", handle.EditDraft)
		draftRoutes.POST("/flush", handle.FlushDraft)
		draftRoutes.DELETE("", handle.CloseDraft)
	}
}
