package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/postvault/pkg/internal/handle"
)

// RegisterTrashRoutes 注册回收站相关路由.
func RegisterTrashRoutes(g *gin.RouterGroup, admin ...gin.HandlerFunc) {
	trashRoutes := g.Group("/trash")

	{
		trashRoutes.GET("/stats", handle.GetTrashStats)
		trashRoutes.DELETE("", handle.EmptyTrash) // 清空当前用户回收站

		// ===== 项目快照 =====
		projectGroup := trashRoutes.Group("/projects")
		{
			projectGroup.GET("", handle.ListDeletedProjects)
			projectGroup.POST("/:id/restore", handle.RestoreProject)
			projectGroup.DELETE("/:id", handle.PurgeProject)
		}

		// ===== 文件快照 =====
		fileGroup := trashRoutes.Group("/files")
		{
			fileGroup.GET("", handle.ListDeletedFiles)
			fileGroup.POST("/:id/restore", handle.RestoreFile)
			fileGroup.DELETE("/:id", handle.PurgeFile)
		}

		// ===== 过期清理 =====
		trashRoutes.Group("", admin...).POST("/cleanup", handle.CleanupTrash)
	}
}
