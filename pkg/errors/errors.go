// Package errors 提供统一的错误定义
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeUnauthorized       ErrorCode = "1002"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 认证与计费 (2xxx)
	CodeRegistrationRequired ErrorCode = "2001"
	CodeInsufficientCredits  ErrorCode = "2002"

	// 资源错误 (3xxx)
	CodeProjectNotFound ErrorCode = "3001"
	CodeActNotFound     ErrorCode = "3002"
	CodeSceneNotFound   ErrorCode = "3003"
	CodeTemplateMissing ErrorCode = "3004"

	// 业务错误 (4xxx)
	CodeNoActiveProject     ErrorCode = "4001"
	CodeNothingToGenerate   ErrorCode = "4002"
	CodePrerequisiteMissing ErrorCode = "4003"
	CodeBatchRunning        ErrorCode = "4004"
	CodeGenerationFailed    ErrorCode = "4005"
	CodeStepLocked          ErrorCode = "4006"

	// 外部服务错误 (5xxx)
	CodeStorageError ErrorCode = "5001"
	CodeMirrorError  ErrorCode = "5002"
	CodeBackendError ErrorCode = "5003"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码匹配，便于 errors.Is(err, ErrBatchRunning)
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail 添加详细信息（返回副本，预定义错误不被修改）
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError 添加底层错误（返回副本）
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Newf 使用格式化消息创建应用错误
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeNothingToGenerate, CodePrerequisiteMissing, CodeNoActiveProject, CodeStepLocked:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeRegistrationRequired:
		return http.StatusUnauthorized
	case CodeInsufficientCredits:
		return http.StatusPaymentRequired
	case CodeNotFound, CodeProjectNotFound, CodeActNotFound, CodeSceneNotFound, CodeTemplateMissing:
		return http.StatusNotFound
	case CodeConflict, CodeBatchRunning:
		return http.StatusConflict
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeGenerationFailed, CodeBackendError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound     = New(CodeNotFound, "resource not found")
	ErrConflict     = New(CodeConflict, "resource conflict")

	ErrRegistrationRequired = New(CodeRegistrationRequired, "please register or sign in to generate content")
	ErrInsufficientCredits  = New(CodeInsufficientCredits, "insufficient credits for this operation")

	ErrProjectNotFound = New(CodeProjectNotFound, "project not found")
	ErrActNotFound     = New(CodeActNotFound, "act not found")
	ErrSceneNotFound   = New(CodeSceneNotFound, "scene not found")
	ErrTemplateMissing = New(CodeTemplateMissing, "template not found")

	ErrNoActiveProject     = New(CodeNoActiveProject, "no project loaded")
	ErrNothingToGenerate   = New(CodeNothingToGenerate, "nothing to generate")
	ErrPrerequisiteMissing = New(CodePrerequisiteMissing, "prerequisite content missing")
	ErrBatchRunning        = New(CodeBatchRunning, "a generation is already in progress")
	ErrGenerationFailed    = New(CodeGenerationFailed, "generation failed")
	ErrStepLocked          = New(CodeStepLocked, "wizard step is not available yet")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}

// HasCode 检查错误链中是否包含指定错误码
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
