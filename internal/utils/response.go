package utils

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jayg2309/bingekaro/internal/apperr"
)

// Response 统一API响应结构
type Response struct {
	Code             int                 `json:"code"`                       // 状态码
	Message          string              `json:"message"`                    // 消息
	Data             interface{}         `json:"data"`                       // 数据
	Success          bool                `json:"success"`                    // 是否成功
	Errors           []apperr.FieldError `json:"errors,omitempty"`           // 字段错误
	RequiresPassword bool                `json:"requiresPassword,omitempty"` // 私有列表需要密码
}

// Success 返回成功响应
func Success(c *gin.Context, data interface{}) {
	SuccessWithMessage(c, "success", data)
}

// SuccessWithMessage 返回成功响应并自定义消息
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: message,
		Data:    data,
		Success: true,
	})
}

// Created 返回201
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: message,
		Data:    data,
		Success: true,
	})
}

// Error 返回错误响应
func Error(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, Response{
		Code:    code,
		Message: message,
		Data:    nil,
		Success: false,
	})
}

// BadRequest 返回400错误
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized 返回401错误
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Not authorized"
	}
	Error(c, http.StatusUnauthorized, message)
}

// NotFound 返回404错误
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	Error(c, http.StatusNotFound, message)
}

// FromError 按错误分类输出响应；内部错误只记录日志，不把细节返回给客户端
func FromError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	resp := Response{Code: status, Success: false}

	if kind == apperr.KindInternal {
		slog.ErrorContext(c.Request.Context(), "请求处理失败",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err,
		)
		resp.Message = "Server error"
		c.AbortWithStatusJSON(status, resp)
		return
	}

	// 非 Internal 分类一定来自 *apperr.Error
	var e *apperr.Error
	errors.As(err, &e)
	resp.Message = e.Message
	resp.Errors = e.Fields
	resp.RequiresPassword = kind == apperr.KindRequireSecret
	if kind == apperr.KindUpstreamUnavailable && e.Err != nil {
		slog.WarnContext(c.Request.Context(), "上游服务不可用", "path", c.Request.URL.Path, "error", e.Err)
	}
	c.AbortWithStatusJSON(status, resp)
}
