// Package api 组装对外的 HTTP 接口版本，将路由挂载到 gin 引擎.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/postvault/pkg/internal/router"
)

// V1Prefix 当前 API 版本前缀.
const V1Prefix = "/api/v1"

// RegisterGroup 在 /api/v1 下注册全部业务路由到传入的 gin 引擎.
func RegisterGroup(e *gin.Engine, opts router.Options) *gin.Engine {
	router.Register(e.Group(V1Prefix), opts)

	return e
}
