// Package handle 提供 HTTP 请求处理器的实现，负责参数绑定、调用 service 与错误到状态码的映射.
package handle

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/postvault/pkg/internal/autosave"
	"github.com/yeisme/postvault/pkg/internal/publish"
	"github.com/yeisme/postvault/pkg/internal/service"
	"github.com/yeisme/postvault/pkg/internal/storage/db"
	"github.com/yeisme/postvault/pkg/log"
	"github.com/yeisme/postvault/pkg/middleware"
	"github.com/yeisme/postvault/pkg/rule"
)

// ErrorResponse 错误响应体.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// currentUser 取身份中间件写入的用户，缺失时直接返回 401.
func currentUser(c *gin.Context) (string, bool) {
	user := middleware.GetUser(c)
	if user == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing user"})
		return "", false
	}

	return user, true
}

// bindJSON 绑定并校验请求体；allowEmpty 为 true 时空 body 视为零值.
func bindJSON(c *gin.Context, dst any, allowEmpty bool) bool {
	if c.Request.ContentLength == 0 && allowEmpty {
		return validate(c, dst)
	}

	if err := c.ShouldBindJSON(dst); err != nil {
		writeBindError(c, err)
		return false
	}

	return validate(c, dst)
}

// bindQuery 绑定并校验查询参数.
func bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		writeBindError(c, err)
		return false
	}

	return validate(c, dst)
}

func validate(c *gin.Context, dst any) bool {
	if err := rule.ValidateStruct(dst); err != nil {
		writeBindError(c, err)
		return false
	}

	return true
}

func writeBindError(c *gin.Context, err error) {
	if fields := rule.Errors(err); fields != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Fields: fields})
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}

// intQuery 读取整数查询参数，缺失或非法时返回 def.
func intQuery(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}

	return v
}

// statusOf 将业务错误映射为 HTTP 状态码.
func statusOf(err error) int {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrTargetMissing),
		errors.Is(err, publish.ErrInvalidTransition),
		errors.Is(err, service.ErrSubmissionInFlight),
		errors.Is(err, autosave.ErrNotLoaded):
		return http.StatusConflict
	case errors.Is(err, publish.ErrValidation),
		errors.Is(err, service.ErrInvalidArgument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrNoStorage),
		errors.Is(err, autosave.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError 输出错误响应，5xx 记录日志.
func respondError(c *gin.Context, msg string, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		log.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg(msg)
	}

	resp := ErrorResponse{Error: err.Error()}

	var ve *publish.ValidationError
	if errors.As(err, &ve) {
		resp.Fields = ve.Fields
	}

	c.AbortWithStatusJSON(code, resp)
}
