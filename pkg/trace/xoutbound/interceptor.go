package xoutbound

import (
	"context"
	"errors"
	"maps"
	"net/http"
	"net/url"
	"reflect"
	"slices"
	"strings"

	"github.com/omeyang/xtracer/pkg/context/xctx"
	"github.com/omeyang/xtracer/pkg/trace/xspan"
	"github.com/omeyang/xtracer/pkg/trace/xtag"
)

// DefaultComponent 默认 component 标签
const DefaultComponent = "net/http"

// Call 一次出站调用的描述
type Call struct {
	Method string
	URL    string
	// Header 调用方设置的 Header，不会被修改
	Header http.Header
}

// Option 拦截器选项
type Option func(*Interceptor)

// WithBaseURL 设置客户端的基础地址，span 操作名与 host 标签取其主机名。
// 无法解析或为空时忽略。
func WithBaseURL(base string) Option {
	return func(i *Interceptor) {
		if base == "" {
			return
		}
		if u, err := url.Parse(base); err == nil && u.Host != "" {
			i.baseURL = u
		}
	}
}

// WithComponent 设置 component 标签（客户端库名）
func WithComponent(name string) Option {
	return func(i *Interceptor) {
		if name != "" {
			i.component = name
		}
	}
}

// Interceptor 出站调用拦截器，构建后只读，可并发使用
type Interceptor struct {
	tracing   *xspan.Tracing
	baseURL   *url.URL
	component string
}

// New 创建拦截器。tracing 为 nil 时使用空实现。
func New(tracing *xspan.Tracing, opts ...Option) *Interceptor {
	if tracing == nil {
		tracing = xspan.New(nil)
	}
	i := &Interceptor{
		tracing:   tracing,
		component: DefaultComponent,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	return i
}

// Do 为一次出站调用创建 client span，注入追踪 Header 后调用 invoke。
//
// invoke 收到的 ctx 携带新 span，header 是合并了追踪上下文的 Header 副本。
// 旁路时 invoke 收到原 ctx 与 call.Header。
// invoke 的结果与错误原样返回；panic 标注后以原值重新 panic。
func Do[T any](ctx context.Context, i *Interceptor, call Call, invoke func(ctx context.Context, header http.Header) (T, error)) (result T, err error) {
	if invoke == nil {
		return result, ErrNilInvoke
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if i == nil || i.bypassed(ctx) {
		return invoke(ctx, call.Header)
	}

	host := i.host(call.URL)
	ctx, span := i.tracing.StartSpan(ctx, host, xspan.KindClient, i.startTags(ctx, call, host))
	defer span.Finish()

	header := i.inject(ctx, call.Header)
	i.tagHeaders(span, header)

	defer func() {
		if rec := recover(); rec != nil {
			i.tracing.RecordError(span, xspan.AsError(rec))
			panic(rec)
		}
	}()

	result, err = invoke(ctx, header)
	if err != nil {
		i.fail(span, err)
		return result, err
	}

	if code, ok := statusOf(result); ok {
		i.tracing.Tag(span, xtag.CategoryHTTP, xtag.FieldHTTPStatusCode, code)
	}
	span.SetTag(xspan.TagOTelStatusCode, xspan.StatusOK)
	return result, nil
}

func (i *Interceptor) bypassed(ctx context.Context) bool {
	return !i.tracing.Enabled(xspan.SurfaceHTTPClient) || xctx.TracingBypassed(ctx)
}

func (i *Interceptor) host(rawURL string) string {
	if i.baseURL != nil {
		return i.baseURL.Hostname()
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func (i *Interceptor) startTags(ctx context.Context, call Call, host string) map[string]any {
	tags := map[string]any{
		xspan.TagCategory:  xspan.CategoryHTTP,
		xspan.TagComponent: i.component,
		xspan.TagKind:      xspan.KindClient.String(),
		xspan.TagSource:    callSite(ctx),
	}
	set := func(field string, value any) {
		if key := i.tracing.TagKey(xtag.CategoryHTTP, field); key != "" {
			tags[key] = value
		}
	}
	set(xtag.FieldHTTPURL, call.URL)
	set(xtag.FieldHTTPHost, host)
	set(xtag.FieldHTTPMethod, strings.ToUpper(call.Method))
	return tags
}

// inject 返回合并了追踪上下文的 Header 副本，追踪传播 key 覆盖同名 Header
func (i *Interceptor) inject(ctx context.Context, h http.Header) http.Header {
	header := h.Clone()
	if header == nil {
		header = make(http.Header)
	}
	carrier := make(map[string]string, 2)
	i.tracing.Tracer().Inject(ctx, carrier)
	for k, v := range carrier {
		header.Set(k, v)
	}
	return header
}

func (i *Interceptor) tagHeaders(span xspan.Span, header http.Header) {
	prefix := i.tracing.TagKey(xtag.CategoryHTTP, xtag.FieldHTTPRequestHeader)
	if prefix == "" {
		return
	}
	for _, name := range slices.Sorted(maps.Keys(header)) {
		span.SetTag(prefix+"."+name, strings.Join(header[name], ", "))
	}
}

func (i *Interceptor) fail(span xspan.Span, err error) {
	i.tracing.RecordError(span, err)
	var sc xspan.StatusCoder
	if errors.As(err, &sc) {
		i.tracing.Tag(span, xtag.CategoryHTTP, xtag.FieldHTTPStatusCode, sc.StatusCode())
	}
}

func statusOf(result any) (int, bool) {
	switch v := result.(type) {
	case *http.Response:
		if v != nil {
			return v.StatusCode, true
		}
	case xspan.StatusCoder:
		if !isNilValue(v) {
			return v.StatusCode(), true
		}
	}
	return 0, false
}

// isNilValue 判断接口内是否为 typed nil（如 (*T)(nil)）
func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
