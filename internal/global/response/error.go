package response

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// ErrorContextKey 是用于在 gin.Context 中存储错误对象的键
const ErrorContextKey = "error"

// Error 带错误码的业务错误
// 错误码前三位即 HTTP 状态码，同一类错误共享前三位，见 IsConflict 等判定
type Error struct {
	Code    int32  `json:"code"`
	Message string `json:"msg"`
	Origin  string `json:"origin,omitempty"`
	// cause 保存原始错误，供 Unwrap 和 Sentry 堆栈提取
	cause error
	stack pkgerrors.StackTrace
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

func newError(code int32, msg string) *Error {
	return &Error{
		Code:    code,
		Message: msg,
	}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("code:%d, msg:%s, cause:%v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("code:%d, msg:%s", e.Code, e.Message)
}

// GetCode 实现 sentry.CodedError 接口
func (e *Error) GetCode() int32 {
	return e.Code
}

// HTTPStatus 错误码对应的 HTTP 状态码
func (e *Error) HTTPStatus() int {
	return int(e.Code / 100)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) StackTrace() pkgerrors.StackTrace {
	if e.stack != nil {
		return e.stack
	}
	if st, ok := e.cause.(stackTracer); ok {
		return st.StackTrace()
	}
	return nil
}

// Is 按错误码比较，WithTips/WithOrigin 派生出的错误与原错误相等
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithOrigin 附带原始错误（debug 模式下返回给前端），并保留堆栈
func (e *Error) WithOrigin(err error) *Error {
	if err == nil {
		return e
	}
	wrapped := ensureStack(err)
	newErr := &Error{
		Code:    e.Code,
		Message: e.Message,
		Origin:  fmt.Sprintf("%+v", wrapped),
		cause:   wrapped,
	}
	if st, ok := wrapped.(stackTracer); ok {
		newErr.stack = st.StackTrace()
	}
	return newErr
}

// WithTips 向前端返回额外的提示信息（release 模式也可见）
func (e *Error) WithTips(details ...string) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message + " " + fmt.Sprintf("%v", details),
		Origin:  e.Origin,
		cause:   e.cause,
		stack:   e.stack,
	}
}

func ensureStack(err error) error {
	if _, ok := err.(stackTracer); ok {
		return err
	}
	return pkgerrors.WithStack(err)
}

func class(err error) int32 {
	var e *Error
	if !errors.As(err, &e) {
		return 0
	}
	return e.Code / 100
}

// IsValidation 输入不合法，重试也不会成功
func IsValidation(err error) bool { return class(err) == 400 }

// IsConflict 已有进行中的/已处理的同类请求
func IsConflict(err error) bool { return class(err) == 409 }

// IsPrecondition 依赖的记录不存在或身份不满足
func IsPrecondition(err error) bool { return class(err) == 404 }

// IsTransient 锁等待超时等，可原样重试
func IsTransient(err error) bool { return class(err) == 503 }
