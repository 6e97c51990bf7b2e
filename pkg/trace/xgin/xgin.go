// Package xgin 提供 gin 的入站追踪中间件。
//
// 分发结果取自 c.FullPath()：命中的路由模板（如 /users/:id）作为 ROUTE，
// 未命中路由时 FullPath 为空，ROUTE 为 not_found。
// handler 通过 c.Error 记录的最后一个错误视为抛出的错误，panic 原样重新抛出。
package xgin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/omeyang/xtracer/pkg/trace/xinbound"
	"github.com/omeyang/xtracer/pkg/trace/xspan"
)

// Middleware 返回 gin 追踪中间件
func Middleware(tracing *xspan.Tracing, opts ...xinbound.Option) gin.HandlerFunc {
	return Wrap(xinbound.New(tracing, opts...))
}

// Wrap 用已有的拦截器构造 gin 中间件
func Wrap(in *xinbound.Interceptor) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		r := c.Request.WithContext(xinbound.WithDispatched(c.Request.Context(), xinbound.Dispatched{
			Route: route,
			Found: route != "",
		}))

		//nolint:errcheck // 错误已留在 c.Errors 中
		in.Intercept(r, func(r *http.Request) (int, error) {
			c.Request = r
			c.Next()
			if last := c.Errors.Last(); last != nil {
				return c.Writer.Status(), last.Err
			}
			return c.Writer.Status(), nil
		})
	}
}
