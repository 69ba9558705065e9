package common

import (
	"errors"
	"fmt"
	"time"
)

// AppError 应用级错误结构
// ResetAt / Remaining 只在限流类错误上有意义
type AppError struct {
	Code      string
	Message   string
	Err       error
	ResetAt   time.Time
	Remaining int
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装错误
func WrapError(code, message string, err error) error {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewError 创建新错误
func NewError(code, message string) error {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewRateLimited 本地限流：带上窗口重置时间，调用方提示用户何时重试
func NewRateLimited(message string, resetAt time.Time) error {
	return &AppError{
		Code:    ErrCodeRateLimited,
		Message: message,
		ResetAt: resetAt,
	}
}

// NewUpstreamRateLimited 上游 (GitHub) 配额耗尽：带上响应头里的剩余配额
func NewUpstreamRateLimited(message string, remaining int) error {
	return &AppError{
		Code:      ErrCodeUpstreamRateLimited,
		Message:   message,
		Remaining: remaining,
	}
}

// AsAppError 取出错误链里的 AppError (没有则返回 nil)
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// CodeOf 取出错误码，非 AppError 一律视为内部错误
func CodeOf(err error) string {
	if appErr := AsAppError(err); appErr != nil {
		return appErr.Code
	}
	return ErrCodeInternal
}

// 错误码常量
const (
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeUpstreamRateLimited = "UPSTREAM_RATE_LIMITED"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeUpstream            = "UPSTREAM_ERROR"
	ErrCodeGeneration          = "GENERATION_ERROR"
	ErrCodePersistence         = "PERSISTENCE_ERROR"
	ErrCodeInternal            = "INTERNAL_ERROR"
)
