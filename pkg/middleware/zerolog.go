package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/postvault/pkg/log"
)

// GinLoggerMiddleware 每个请求一条访问日志，5xx 为 error，4xx 为 warn.
func GinLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		l := log.Ctx(c.Request.Context())

		var ev *zerolog.Event

		switch {
		case status >= http.StatusInternalServerError:
			ev = l.Error()
		case status >= http.StatusBadRequest:
			ev = l.Warn()
		default:
			ev = l.Info()
		}

		ev = ev.Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Str("path", c.Request.URL.RequestURI()).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP())

		if user := GetUser(c); user != "" {
			ev = ev.Str("user", user)
		}

		if cache := c.Writer.Header().Get("X-Cache"); cache != "" {
			ev = ev.Str("cache", cache)
		}

		if len(c.Errors) > 0 {
			ev = ev.Str("error", c.Errors.String())
		}

		ev.Msg("http request")
	}
}
