package xinbound

import (
	"bufio"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/felixge/httpsnoop"

	"github.com/omeyang/xtracer/pkg/trace/xspan"
)

// Middleware 返回标准 http.Handler 中间件。
//
// 状态码由包装的 ResponseWriter 记录，handler 未写出时为 200。
// handler 中的 panic 被视为抛出的错误：标注后重新 panic。
func (i *Interceptor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw, rec := wrapWriter(w)
		//nolint:errcheck // Next 从不返回错误
		i.Intercept(r, func(r *http.Request) (int, error) {
			next.ServeHTTP(rw, r)
			return rec.status, nil
		})
	})
}

// ErrorWriter 将处理函数返回的错误写入响应，返回写出的状态码
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error) int

// DefaultErrorWriter 携带 StatusCoder 的错误使用其状态码，否则 500
func DefaultErrorWriter(w http.ResponseWriter, _ *http.Request, err error) int {
	status := http.StatusInternalServerError
	var sc xspan.StatusCoder
	if errors.As(err, &sc) && sc.StatusCode() >= 400 {
		status = sc.StatusCode()
	}
	http.Error(w, http.StatusText(status), status)
	return status
}

// HandlerFunc 将返回 error 的处理函数适配为 http.Handler。
//
// 返回的错误即抛出的错误：标注到 span 后交给 ErrorWriter 渲染。
func (i *Interceptor) HandlerFunc(fn func(w http.ResponseWriter, r *http.Request) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw, rec := wrapWriter(w)
		_, err := i.Intercept(r, func(r *http.Request) (int, error) {
			if err := fn(rw, r); err != nil {
				return rec.status, err
			}
			return rec.status, nil
		})
		if err != nil && !rec.written {
			i.errorWriter(rw, r, err)
		}
	})
}

// statusRecorder 记录 handler 写出的状态码与是否已开始响应
type statusRecorder struct {
	status  int
	written bool
}

func (rec *statusRecorder) commit(code int) {
	if !rec.written {
		rec.status = code
		rec.written = true
	}
}

// wrapWriter 包装 ResponseWriter 记录状态码。
//
// httpsnoop 保留底层 writer 实现的 Flusher、Hijacker、ReaderFrom 等可选接口，
// SSE 与 websocket handler 在中间件后行为不变。
func wrapWriter(w http.ResponseWriter) (http.ResponseWriter, *statusRecorder) {
	rec := &statusRecorder{status: http.StatusOK}
	wrapped := httpsnoop.Wrap(w, httpsnoop.Hooks{
		WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
			return func(code int) {
				rec.commit(code)
				next(code)
			}
		},
		Write: func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
			return func(b []byte) (int, error) {
				rec.commit(http.StatusOK)
				return next(b)
			}
		},
		ReadFrom: func(next httpsnoop.ReadFromFunc) httpsnoop.ReadFromFunc {
			return func(src io.Reader) (int64, error) {
				rec.commit(http.StatusOK)
				return next(src)
			}
		},
		Flush: func(next httpsnoop.FlushFunc) httpsnoop.FlushFunc {
			return func() {
				rec.commit(http.StatusOK)
				next()
			}
		},
		Hijack: func(next httpsnoop.HijackFunc) httpsnoop.HijackFunc {
			return func() (net.Conn, *bufio.ReadWriter, error) {
				conn, brw, err := next()
				if err == nil {
					rec.commit(http.StatusSwitchingProtocols)
				}
				return conn, brw, err
			}
		},
	})
	return wrapped, rec
}
