package xspan

import (
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"google.golang.org/grpc/status"

	"github.com/omeyang/xtracer/pkg/trace/xtag"
)

var defaultRegistry = xtag.New()

type coder interface {
	Code() int
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// AppendException 将 err 的类型、码、消息、堆栈写为 span 标签。
//
// 标签名取自 tags 的 exception 分类（tags 为 nil 时使用内置默认值），
// 被覆盖为空字符串的字段不写。
//
//   - class: 错误的动态类型名，去掉前导 *
//   - code: Code() int，否则 StatusCode() int，否则 gRPC 状态码，否则 0
//   - message: err.Error()
//   - stack_trace: 错误链上携带的 StackTrace()，否则当前 goroutine 堆栈
//
// 不检查开关；span 或 err 为 nil 时不做任何事；不会 panic。
func AppendException(span Span, tags *xtag.Registry, err error) {
	if span == nil || err == nil {
		return
	}
	if tags == nil {
		tags = defaultRegistry
	}
	defer func() {
		_ = recover() // 标注失败不影响调用方
	}()

	set := func(field string, value any) {
		if key := tags.Key(xtag.CategoryException, field); key != "" {
			span.SetTag(key, value)
		}
	}
	set(xtag.FieldExceptionClass, errorClass(err))
	set(xtag.FieldExceptionCode, errorCode(err))
	set(xtag.FieldExceptionMessage, errorMessage(err))
	set(xtag.FieldExceptionStackTrace, errorStack(err))
}

func errorClass(err error) string {
	return strings.TrimPrefix(reflect.TypeOf(err).String(), "*")
}

func errorCode(err error) (code int) {
	defer func() {
		if recover() != nil {
			code = 0
		}
	}()

	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	if st, ok := status.FromError(err); ok {
		return int(st.Code())
	}
	return 0
}

func errorMessage(err error) (msg string) {
	defer func() {
		if recover() != nil {
			msg = ""
		}
	}()
	return err.Error()
}

func errorStack(err error) (stack string) {
	defer func() {
		if recover() != nil || stack == "" {
			stack = string(debug.Stack())
		}
	}()

	var st stackTracer
	if errors.As(err, &st) {
		return fmt.Sprintf("%+v", st.StackTrace())
	}
	return string(debug.Stack())
}

// PanicError 包装 panic 的非 error 值，便于按错误标注
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// AsError 将 recover() 的值转换为 error：本身是 error 时原样返回
func AsError(recovered any) error {
	if recovered == nil {
		return nil
	}
	if err, ok := recovered.(error); ok {
		return err
	}
	return &PanicError{Value: recovered}
}
