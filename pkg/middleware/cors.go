package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/postvault/pkg/configs"
)

// CORSMiddleware 跨域配置，允许携带身份与缓存控制头，并暴露缓存、限流与追踪相关响应头.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	c := cors.DefaultConfig()
	c.AddAllowHeaders("X-User", "X-Cache-Bypass", "If-None-Match", "traceparent")
	c.AddExposeHeaders("X-Cache", "ETag", "Age", "Retry-After", "X-Trace-Id")
	c.MaxAge = 12 * time.Hour

	if len(cfg.CORSOrigins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.CORSOrigins
	}

	return cors.New(c)
}
