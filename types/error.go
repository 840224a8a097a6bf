package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across docgraph.
type ErrorCode string

// Request / transport error codes
const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrTimeout            ErrorCode = "TIMEOUT"
	ErrInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrUpstreamError      ErrorCode = "UPSTREAM_ERROR"
	ErrRateLimited        ErrorCode = "RATE_LIMITED"
	ErrUnauthorized       ErrorCode = "UNAUTHORIZED"
)

// Retrieval pipeline error codes
const (
	// ErrEmbeddingFailure 嵌入调用失败。主检索阶段致命，扩展检索阶段被吸收。
	ErrEmbeddingFailure ErrorCode = "EMBEDDING_FAILURE"
	// ErrRetrievalInputInvalid 请求在任何嵌入调用之前被拒绝（例如空查询）。
	ErrRetrievalInputInvalid ErrorCode = "RETRIEVAL_INPUT_INVALID"
	// ErrStoreUnavailable 记忆存储读写失败。
	ErrStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// ErrGraphConstruction 图构建失败。格式正确的输入不会产生该错误。
	ErrGraphConstruction ErrorCode = "GRAPH_CONSTRUCTION"
	// ErrRetrievalFailed 主检索流水线失败，不返回部分结果。
	ErrRetrievalFailed ErrorCode = "RETRIEVAL_FAILED"
	// ErrGenerationFailure 答案生成调用失败。
	ErrGenerationFailure ErrorCode = "GENERATION_FAILURE"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// AsError extracts the outermost *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsErrorCode reports whether any *Error in err's chain carries code.
func IsErrorCode(err error, code ErrorCode) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}
