package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误
	ErrCodeInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrCodeBadRequest     ErrorCode = "BAD_REQUEST"
	ErrCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden      ErrorCode = "FORBIDDEN"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"

	// 验证错误
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired  ErrorCode = "MISSING_REQUIRED"

	// 业务错误
	ErrCodeUnknownTag       ErrorCode = "UNKNOWN_TAG"
	ErrCodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeDuplicateFAQ     ErrorCode = "DUPLICATE_FAQ"

	// 持久化错误
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"

	// 上游服务错误
	ErrCodeUpstreamTransient ErrorCode = "UPSTREAM_TRANSIENT"
	ErrCodeUpstreamFailure   ErrorCode = "UPSTREAM_FAILURE"
	ErrCodeTimeout           ErrorCode = "TIMEOUT"
)

// ErrorType 错误类型
type ErrorType int

const (
	ErrorTypeValidation ErrorType = iota
	ErrorTypeAuth
	ErrorTypeNotFound
	ErrorTypeUpstreamTransient
	ErrorTypeUpstream
	ErrorTypePersistence
	ErrorTypeDegraded
)

// AppError 应用错误结构体
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Message  string      `json:"message"`
	Type     ErrorType   `json:"type"`
	HTTPCode int         `json:"-"`
	Details  interface{} `json:"details,omitempty"`
	Cause    error       `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加错误详情
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause 添加错误原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewValidationError 创建验证错误
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewAuthError 创建认证错误
func NewAuthError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeUnauthorized,
		Message:  message,
		Type:     ErrorTypeAuth,
		HTTPCode: http.StatusUnauthorized,
	}
}

// NewNotFoundError 创建资源未找到错误
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:     ErrCodeResourceNotFound,
		Message:  fmt.Sprintf("%s not found", resource),
		Type:     ErrorTypeNotFound,
		HTTPCode: http.StatusNotFound,
	}
}

// NewUnknownTagError 创建未知标签错误
func NewUnknownTagError(tagKey string) *AppError {
	return &AppError{
		Code:     ErrCodeUnknownTag,
		Message:  fmt.Sprintf("未定义的标签: %s", tagKey),
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewPersistenceError 创建持久化错误
func NewPersistenceError(message string, cause error) *AppError {
	return &AppError{
		Code:     ErrCodeDatabaseError,
		Message:  message,
		Type:     ErrorTypePersistence,
		HTTPCode: http.StatusInternalServerError,
		Cause:    cause,
	}
}

// NewUpstreamError 创建上游服务错误（重试耗尽后）
func NewUpstreamError(message string, cause error) *AppError {
	return &AppError{
		Code:     ErrCodeUpstreamFailure,
		Message:  message,
		Type:     ErrorTypeUpstream,
		HTTPCode: http.StatusInternalServerError,
		Cause:    cause,
	}
}

// NewDegradedError 创建降级提示（非致命，调用方照常返回）
func NewDegradedError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeUpstreamTransient,
		Message:  message,
		Type:     ErrorTypeDegraded,
		HTTPCode: http.StatusOK,
	}
}

// IsAppError 检查是否为AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError 获取AppError，如果不是则包装为持久化之外的内部错误
func GetAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	return &AppError{
		Code:     ErrCodeInternalServer,
		Message:  "Internal server error",
		Type:     ErrorTypeUpstream,
		HTTPCode: http.StatusInternalServerError,
		Cause:    err,
	}
}
