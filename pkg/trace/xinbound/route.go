package xinbound

import (
	"context"
	"net/http"
	"strings"
)

// NotFound 路由查找明确未命中时的 ROUTE
const NotFound = "not_found"

// Dispatched 路由框架的分发结果
type Dispatched struct {
	// Route 命中的路由模板，如 /users/{id}
	Route string
	// Found 是否命中
	Found bool
}

type dispatchedKey struct{}

// WithDispatched 将分发结果挂到 context 上
func WithDispatched(ctx context.Context, d Dispatched) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, dispatchedKey{}, d)
}

// DispatchedFrom 读取分发结果
func DispatchedFrom(ctx context.Context) (Dispatched, bool) {
	if ctx == nil {
		return Dispatched{}, false
	}
	d, ok := ctx.Value(dispatchedKey{}).(Dispatched)
	return d, ok
}

// Router 能为请求给出匹配模式的路由器，*http.ServeMux 满足该接口
type Router interface {
	Handler(r *http.Request) (h http.Handler, pattern string)
}

func (i *Interceptor) resolveRoute(r *http.Request) string {
	if d, ok := DispatchedFrom(r.Context()); ok {
		if !d.Found || d.Route == "" {
			return NotFound
		}
		return d.Route
	}
	if i.router != nil {
		_, pattern := i.router.Handler(r)
		if pattern == "" {
			return NotFound
		}
		return patternPath(pattern)
	}
	return r.URL.EscapedPath()
}

// patternPath 去掉 ServeMux 模式中的方法与主机部分：
// "GET example.com/users/{id}" → "/users/{id}"
func patternPath(pattern string) string {
	if _, rest, ok := strings.Cut(pattern, " "); ok {
		pattern = strings.TrimLeft(rest, " \t")
	}
	if idx := strings.IndexByte(pattern, '/'); idx > 0 {
		pattern = pattern[idx:]
	}
	return pattern
}
