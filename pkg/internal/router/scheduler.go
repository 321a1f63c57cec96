package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/postvault/pkg/internal/handle"
)

// RegisterSchedulerRoutes 注册调度器相关路由.
func RegisterSchedulerRoutes(g *gin.RouterGroup, admin ...gin.HandlerFunc) {
	schedRoutes := g.Group("/scheduler/jobs", admin...)
	{
		schedRoutes.GET("", handle.SchedulerJobs)
		schedRoutes.GET("/:name", handle.SchedulerJob)
		schedRoutes.POST("/:name/run", handle.SchedulerRunJob)
		schedRoutes.DELETE("/:name", handle.SchedulerRemoveJob)
	}
}
