package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/postvault/pkg/metrics"
)

// PrometheusMiddleware 记录请求数、耗时与并发数，endpoint 使用路由模板，status 按 2xx/4xx 分组.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		metrics.ActiveConnections.Inc()
		defer metrics.ActiveConnections.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		method := c.Request.Method
		metrics.RequestCounter.WithLabelValues(method, route, statusClass(c.Writer.Status())).Inc()
		metrics.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
