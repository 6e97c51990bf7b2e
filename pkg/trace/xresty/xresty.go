// Package xresty 为 resty 客户端安装出站追踪。
//
// 追踪在 Transport 层完成：resty 的重试、中间件都发生在 span 之外，
// 每次实际发出的 HTTP 请求各有一个 client span。
// 客户端设置了 BaseURL 时，span 操作名与 host 标签取 BaseURL 的主机名。
//
// 跳过追踪：
//
//	client.R().SetContext(xctx.WithoutTracing(ctx)).Get(url)
package xresty

import (
	"github.com/go-resty/resty/v2"

	"github.com/omeyang/xtracer/pkg/trace/xoutbound"
	"github.com/omeyang/xtracer/pkg/trace/xspan"
)

// Component resty 客户端的 component 标签
const Component = "resty"

// Instrument 用追踪 Transport 包装 client 当前的 Transport，返回同一个 client。
//
// 应在设置 BaseURL 与自定义 Transport 之后调用。
func Instrument(client *resty.Client, tracing *xspan.Tracing, opts ...xoutbound.Option) *resty.Client {
	if client == nil {
		client = resty.New()
	}
	base := []xoutbound.Option{xoutbound.WithComponent(Component)}
	if client.BaseURL != "" {
		base = append(base, xoutbound.WithBaseURL(client.BaseURL))
	}
	in := xoutbound.New(tracing, append(base, opts...)...)
	client.SetTransport(in.Transport(client.GetClient().Transport))
	return client
}

// New 创建已安装追踪的 resty 客户端
func New(tracing *xspan.Tracing, baseURL string, opts ...xoutbound.Option) *resty.Client {
	client := resty.New()
	if baseURL != "" {
		client.SetBaseURL(baseURL)
	}
	return Instrument(client, tracing, opts...)
}
