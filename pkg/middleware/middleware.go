// Package middleware 提供 HTTP 中间件：身份、存储与生命周期组件注入、日志、追踪、指标、
// 限流、熔断、压缩与响应缓存.
package middleware

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// CompressionMiddleware 对 JSON 响应启用 gzip，指标与健康检查路径除外.
func CompressionMiddleware() gin.HandlerFunc {
	return gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/metrics", "/api/v1/health"}),
	)
}
