package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/postvault/pkg/internal/handle"
)

// RegisterStatsRoutes 注册只读统计路由，mw 通常为响应缓存.
func RegisterStatsRoutes(g *gin.RouterGroup, mw ...gin.HandlerFunc) {
	stats := g.Group("/stats", mw...)
	stats.GET("/overview", handle.GetStatsOverview)
	stats.GET("/trend", handle.GetPostedTrend)
}
