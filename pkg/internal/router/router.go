// Package router 管理路由配置，将 pkg/internal/handle 中的处理器绑定到 gin 路由组.
package router

import (
	"github.com/gin-gonic/gin"
)

// Options 路由注册的可选中间件.
type Options struct {
	// StatsMiddleware 作用于 /stats 只读路由，例如响应缓存
	StatsMiddleware []gin.HandlerFunc
	// AdminMiddleware 作用于调度器与批量维护路由
	AdminMiddleware []gin.HandlerFunc
}

// Register 在传入的路由组（通常为 /api/v1）下注册全部业务路由.
func Register(g *gin.RouterGroup, opts Options) {
	RegisterHealthCheckRoute(g)
	RegisterProjectRoutes(g)
	RegisterFilesRoutes(g)
	RegisterDraftRoutes(g)
	RegisterPublishRoutes(g, opts.AdminMiddleware...)
	RegisterTrashRoutes(g, opts.AdminMiddleware...)
	RegisterStatsRoutes(g, opts.StatsMiddleware...)
	RegisterSchedulerRoutes(g, opts.AdminMiddleware...)
}
