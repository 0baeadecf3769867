package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind 是错误分类，用于把内部错误映射为对外的响应。
type ErrorKind string

const (
	KindInvalidInput         ErrorKind = "invalid_input"
	KindInvalidConfiguration ErrorKind = "invalid_configuration"
	KindServiceUnavailable   ErrorKind = "service_unavailable"
	KindInternal             ErrorKind = "internal"
)

var (
	// ErrInvalidInput 表示请求内容不合法：上传文件损坏、问题为空、参数越界等。
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidConfiguration 表示配置不合法，例如 chunk overlap >= chunk size。
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrServiceUnavailable 表示外部服务（向量库、Embedding、LLM）不可用。
	ErrServiceUnavailable = errors.New("service unavailable")

	// 以下错误都属于 ErrServiceUnavailable。
	ErrEmbeddingService  = fmt.Errorf("embedding service error: %w", ErrServiceUnavailable)
	ErrGenerationService = fmt.Errorf("generation service error: %w", ErrServiceUnavailable)
	ErrVectorStore       = fmt.Errorf("vector store error: %w", ErrServiceUnavailable)
)

// KindOf 返回 err 所属的错误分类。
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrInvalidConfiguration):
		return KindInvalidConfiguration
	case errors.Is(err, ErrServiceUnavailable):
		return KindServiceUnavailable
	default:
		return KindInternal
	}
}

// HTTPStatus 返回与 err 对应的 HTTP 状态码。
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case "":
		return http.StatusOK
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorInfo 把 err 转换为结构化日志中使用的 ErrorInfo。
func NewErrorInfo(err error) ErrorInfo {
	return ErrorInfo{
		Message:    err.Error(),
		Type:       string(KindOf(err)),
		StatusCode: HTTPStatus(err),
	}
}
