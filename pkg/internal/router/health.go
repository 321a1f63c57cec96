package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/postvault/pkg/internal/handle"
)

// RegisterHealthCheckRoute 注册健康检查路由，不要求身份.
func RegisterHealthCheckRoute(g *gin.RouterGroup) {
	g.GET("/health", handle.Health)
	g.GET("/health/:component", handle.HealthComponent)
}
