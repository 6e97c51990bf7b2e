package xoutbound

import (
	"context"
	"net/http"
)

// Transport 对每个请求执行 Do 的 http.RoundTripper
type Transport struct {
	base http.RoundTripper
	in   *Interceptor
}

var _ http.RoundTripper = (*Transport)(nil)

// Transport 包装 base，base 为 nil 时使用 http.DefaultTransport
func (i *Interceptor) Transport(base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, in: i}
}

// Client 返回使用追踪 Transport 的 http.Client 副本，c 为 nil 时基于零值 Client
func (i *Interceptor) Client(c *http.Client) *http.Client {
	var out http.Client
	if c != nil {
		out = *c
	}
	out.Transport = i.Transport(out.Transport)
	return &out
}

// RoundTrip 实现 http.RoundTripper。
//
// 按 RoundTripper 约定不修改 req：追踪 Header 写入克隆出的请求。
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	call := Call{Method: req.Method, URL: req.URL.String(), Header: req.Header}
	return Do(req.Context(), t.in, call, func(ctx context.Context, header http.Header) (*http.Response, error) {
		out := req.Clone(ctx)
		out.Header = header
		return t.base.RoundTrip(out)
	})
}

// Unwrap 返回被包装的 RoundTripper
func (t *Transport) Unwrap() http.RoundTripper {
	return t.base
}

// CloseIdleConnections 转发给被包装的 RoundTripper
func (t *Transport) CloseIdleConnections() {
	type closeIdler interface {
		CloseIdleConnections()
	}
	if c, ok := t.base.(closeIdler); ok {
		c.CloseIdleConnections()
	}
}
