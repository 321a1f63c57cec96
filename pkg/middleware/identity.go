package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/postvault/pkg/rule"
)

// DevUser 调试模式下未携带身份时使用的用户.
const DevUser = "dev-user"

type userKey struct{}

// IdentityMiddleware 从反向代理注入的请求头解析当前用户：
//   - 依次检查 X-User、X-Auth-Request-Email、X-Forwarded-Email
//   - allowQuery 为 true 时允许 ?user= 兜底，仍为空时使用 DevUser
//   - skips 中的路径前缀（如 /health、/metrics）不要求身份
func IdentityMiddleware(allowQuery bool, skips ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := firstHeader(c, "X-User", "X-Auth-Request-Email", "X-Forwarded-Email")

		if user == "" && allowQuery {
			user = strings.TrimSpace(c.Query("user"))
			if user == "" {
				user = DevUser
			}
		}

		if user == "" {
			if isSkippedPath(c.Request.URL.Path, skips) {
				c.Next()
				return
			}

			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})

			return
		}

		if err := rule.ValidateVar(user, "notblank,max=255"); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid user"})
			return
		}

		c.Set("user", user)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), userKey{}, user))
		c.Next()
	}
}

// GetUser 返回当前请求的用户，未认证时为空.
func GetUser(c *gin.Context) string {
	if v, ok := c.Get("user"); ok {
		if u, ok := v.(string); ok {
			return u
		}
	}

	if u, ok := c.Request.Context().Value(userKey{}).(string); ok {
		return u
	}

	return ""
}

func firstHeader(c *gin.Context, names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(c.GetHeader(n)); v != "" {
			return v
		}
	}

	return ""
}

func isSkippedPath(path string, skips []string) bool {
	if path == "" || len(skips) == 0 {
		return false
	}

	for _, p := range skips {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
