package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/postvault/pkg/internal/handle"
)

// RegisterProjectRoutes 注册项目相关路由.
func RegisterProjectRoutes(g *gin.RouterGroup) {
	projectRoutes := g.Group("/projects")
	{
		projectRoutes.POST("", handle.CreateProject)
		projectRoutes.GET("", handle.ListProjects)

		single := projectRoutes.Group("/:id")
		{
			single.GET("", handle.GetProject)
			single.PATCH("", handle.UpdateProject)
			single.DELETE("", handle.DeleteProject) // 移入回收站
			single.GET("/files", handle.ListProjectFiles)
		}
	}
}
