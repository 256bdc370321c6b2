package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

const (
	CodeInvalidInput        ErrorCode = "INVALID_INPUT"
	CodeNotFound            ErrorCode = "NOT_FOUND"
	CodeStorageUnavailable  ErrorCode = "STORAGE_UNAVAILABLE"
	CodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	CodeInternal            ErrorCode = "INTERNAL_ERROR"
)

// AppError 应用错误
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
	// TraceID correlates the error with request logs. Optional.
	TraceID string
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithTrace returns a copy of the error tagged with a trace id.
func (e *AppError) WithTrace(traceID string) *AppError {
	cp := *e
	cp.TraceID = traceID
	return &cp
}

// NewInvalidInputError 创建无效输入错误
func NewInvalidInputError(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidInput,
		Message: message,
	}
}

// NewNotFoundError 创建未找到错误
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: message,
	}
}

// NewStorageUnavailableError wraps a persistence-layer failure.
func NewStorageUnavailableError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeStorageUnavailable,
		Message: message,
		Err:     cause,
	}
}

// NewUpstreamUnavailableError wraps a failure of an external dependency
// (LLM provider, movie catalog).
func NewUpstreamUnavailableError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeUpstreamUnavailable,
		Message: message,
		Err:     cause,
	}
}

// NewInternalErrorWithCause 创建带原因的内部错误
func NewInternalErrorWithCause(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Err:     cause,
	}
}

// CodeOf returns the code of the first AppError in the chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsNotFound 判断是否为未找到错误
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsInvalidInput 判断是否为无效输入错误
func IsInvalidInput(err error) bool {
	return CodeOf(err) == CodeInvalidInput
}

// IsStorageUnavailable reports whether err is a persistence failure.
func IsStorageUnavailable(err error) bool {
	return CodeOf(err) == CodeStorageUnavailable
}

// IsUpstreamUnavailable reports whether err is an external dependency failure.
func IsUpstreamUnavailable(err error) bool {
	return CodeOf(err) == CodeUpstreamUnavailable
}

// HTTPStatus maps an error to the status code the HTTP layer should return.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to API clients. Storage and
// internal failures never leak their cause.
func PublicMessage(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case CodeInvalidInput, CodeNotFound:
			return appErr.Message
		}
	}
	return fallback
}
