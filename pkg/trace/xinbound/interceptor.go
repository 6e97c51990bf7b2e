package xinbound

import (
	"context"
	"errors"
	"maps"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xtracer/pkg/context/xctx"
	"github.com/omeyang/xtracer/pkg/trace/xspan"
	"github.com/omeyang/xtracer/pkg/trace/xtag"
)

// HeaderRequestID 请求 ID Header
const HeaderRequestID = "X-Request-ID"

// Next 被拦截的处理逻辑，返回写出的状态码与抛出的错误
type Next func(r *http.Request) (status int, err error)

// Option 拦截器选项
type Option func(*Interceptor)

// WithRouter 设置用于解析路由模板的 Router
func WithRouter(router Router) Option {
	return func(i *Interceptor) {
		i.router = router
	}
}

// WithErrorWriter 设置 HandlerFunc 渲染错误的方式
func WithErrorWriter(ew ErrorWriter) Option {
	return func(i *Interceptor) {
		if ew != nil {
			i.errorWriter = ew
		}
	}
}

// Interceptor 入站请求拦截器，构建后只读，可并发使用
type Interceptor struct {
	tracing     *xspan.Tracing
	router      Router
	errorWriter ErrorWriter
}

// New 创建拦截器。tracing 为 nil 时使用空实现。
func New(tracing *xspan.Tracing, opts ...Option) *Interceptor {
	if tracing == nil {
		tracing = xspan.New(nil)
	}
	i := &Interceptor{
		tracing:     tracing,
		errorWriter: DefaultErrorWriter,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	return i
}

// Intercept 为一次请求创建 server span 并调用 next。
//
// next 返回的错误标注后原样返回；next 中的 panic 标注后以原值重新 panic。
// span 在所有路径上恰好结束一次，随后异步调度 flush。
func (i *Interceptor) Intercept(r *http.Request, next Next) (status int, err error) {
	ctx := r.Context()
	// 最先注册，最后执行：span 结束之后才 flush
	defer i.tracing.ScheduleFlush(ctx)

	ctx = i.parentContext(ctx, r.Header)

	requestID := strings.TrimSpace(r.Header.Get(HeaderRequestID))
	if requestID == "" {
		requestID = xctx.GenerateRequestID()
	}
	ctx, _ = xctx.WithRequestID(ctx, requestID)

	route := i.resolveRoute(r)
	ctx, span := i.tracing.StartSpan(ctx, r.Method+" "+route, xspan.KindServer, i.startTags(r, route, requestID))
	defer span.Finish()

	defer func() {
		if rec := recover(); rec != nil {
			i.fail(span, xspan.AsError(rec))
			panic(rec)
		}
	}()

	status, err = next(r.WithContext(ctx))
	if err != nil {
		i.fail(span, err)
		return status, err
	}

	i.tracing.Tag(span, xtag.CategoryHTTP, xtag.FieldHTTPStatusCode, status)
	span.SetTag(xspan.TagOTelStatusCode, xspan.StatusOK)
	return status, nil
}

func (i *Interceptor) fail(span xspan.Span, err error) {
	i.tracing.RecordError(span, err)
	var sc xspan.StatusCoder
	if errors.As(err, &sc) {
		i.tracing.Tag(span, xtag.CategoryHTTP, xtag.FieldHTTPStatusCode, sc.StatusCode())
	}
}

func (i *Interceptor) parentContext(ctx context.Context, h http.Header) context.Context {
	if trace.SpanContextFromContext(ctx).IsValid() {
		return ctx
	}
	if len(h) == 0 {
		return ctx
	}
	carrier := make(map[string]string, len(h))
	for name, values := range h {
		if len(values) > 0 {
			carrier[strings.ToLower(name)] = values[0]
		}
	}
	return i.tracing.Tracer().Extract(ctx, carrier)
}

func (i *Interceptor) startTags(r *http.Request, route, requestID string) map[string]any {
	scheme := requestScheme(r)
	hostname, port := splitHostPort(r.Host)
	effectivePort := port
	if effectivePort == "" {
		effectivePort = defaultPort(scheme)
	}
	host := hostname
	if port != "" && port != defaultPort(scheme) {
		host = net.JoinHostPort(hostname, port)
	}

	tags := make(map[string]any, 10+len(r.Header))
	tags[xspan.TagKind] = xspan.KindServer.String()
	set := func(category, field string, value any) {
		if key := i.tracing.TagKey(category, field); key != "" {
			tags[key] = value
		}
	}
	set(xtag.CategoryHTTP, xtag.FieldHTTPServerName, net.JoinHostPort(hostname, effectivePort))
	set(xtag.CategoryHTTP, xtag.FieldHTTPTarget, requestTarget(r.URL))
	set(xtag.CategoryHTTP, xtag.FieldHTTPMethod, r.Method)
	set(xtag.CategoryHTTP, xtag.FieldHTTPRoute, route)
	set(xtag.CategoryHTTP, xtag.FieldHTTPScheme, scheme)
	set(xtag.CategoryHTTP, xtag.FieldHTTPHost, host)
	if p, err := strconv.Atoi(effectivePort); err == nil {
		set(xtag.CategoryNet, xtag.FieldNetHostPort, p)
	}
	set(xtag.CategoryRequest, xtag.FieldRequestID, requestID)

	if prefix := i.tracing.TagKey(xtag.CategoryHTTP, xtag.FieldHTTPRequestHeader); prefix != "" {
		for _, name := range slices.Sorted(maps.Keys(r.Header)) {
			tags[prefix+"."+name] = strings.Join(r.Header[name], ", ")
		}
	}
	return tags
}

// requestTarget 返回保留编码的 "path?query"，"?" 总是存在
func requestTarget(u *url.URL) string {
	return u.EscapedPath() + "?" + u.RawQuery
}

func requestScheme(r *http.Request) string {
	if r.URL.Scheme != "" {
		return r.URL.Scheme
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

func defaultPort(scheme string) string {
	if scheme == "https" {
		return "443"
	}
	return "80"
}

func splitHostPort(hostport string) (host, port string) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return strings.Trim(hostport, "[]"), ""
	}
	return host, port
}
