package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// 基础错误哨兵：业务代码用 errors.Is 判断类别，HTTP 层用 ToHTTPStatus 映射状态码。
var (
	ErrValidation   = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream failure")
	ErrInternal     = errors.New("internal error")
)

// AppError 给基础错误附加可展示的 message 与内部 cause。
// cause 只进日志，永远不进响应体。
type AppError struct {
	Base    error
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Base.Error(), e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Base.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Base
}

func New(base error, message string, cause error) *AppError {
	return &AppError{Base: base, Message: message, Cause: cause}
}

// Validation 表示调用方输入缺失或非法。
func Validation(message string) *AppError {
	return New(ErrValidation, message, nil)
}

// NotFound 表示被引用的实体不存在（含 ID 格式非法的情况）。
func NotFound(resource string) *AppError {
	return New(ErrNotFound, resource+" not found", nil)
}

// Forbidden 表示已认证但不是资源属主。
func Forbidden(message string) *AppError {
	return New(ErrForbidden, message, nil)
}

// Unauthorized 表示认证缺失或无效。
func Unauthorized(message string) *AppError {
	return New(ErrUnauthorized, message, nil)
}

// Conflict 表示与现有状态冲突（例如同名档案）。
func Conflict(message string) *AppError {
	return New(ErrConflict, message, nil)
}

// Upstream 表示对象存储或文档存储故障。
func Upstream(message string, cause error) *AppError {
	return New(ErrUpstream, message, cause)
}

// Internal 表示不可归类的系统错误。
func Internal(message string, cause error) *AppError {
	return New(ErrInternal, message, cause)
}

// ToHTTPStatus 将错误类别映射为 HTTP 状态码；未知错误一律 500。
func ToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage 返回可安全暴露给调用方的描述，内部错误只给通用文案。
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if errors.Is(appErr.Base, ErrInternal) || errors.Is(appErr.Base, ErrUpstream) {
			return "internal error"
		}
		return appErr.Message
	}
	return "internal error"
}
