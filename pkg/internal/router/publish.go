package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/postvault/pkg/internal/handle"
)

// RegisterPublishRoutes 注册发布状态机相关路由；admin 中间件作用于批量维护操作.
func RegisterPublishRoutes(g *gin.RouterGroup, admin ...gin.HandlerFunc) {
	publishRoutes := g.Group("/publish")
	{
		publishRoutes.POST("/:id/schedule", handle.SchedulePost)
		publishRoutes.POST("/:id/submit", handle.SubmitPost)

		maint := publishRoutes.Group("", admin...)
		{
			maint.POST("/due", handle.ProcessDuePosts)
			maint.POST("/reconcile", handle.ReconcileStuck)
		}
	}
}
