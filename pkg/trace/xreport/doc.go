// Package xreport 将结束的 span 以 Zipkin v2 JSON 上报到采集端。
//
// [Reporter] 实现 OTel SDK 的 SpanExporter，可挂到 BatchSpanProcessor 或 SimpleSpanProcessor。
//
// # 请求约定
//
//   - POST 到配置的 endpoint，body 为 span 数组
//   - 先写入额外 Header，再写入必需 Header（Content-Type: application/json、b3: 0），
//     必需 Header 覆盖同名额外 Header
//   - 采集端必须返回 202，否则返回 *xoutbound.BadResponseError
//   - 传输错误与 5xx 按配置次数重试，4xx 不重试
//
// # 避免递归
//
// 上报请求的 context 带有 xctx.WithoutTracing 标记，即使使用被插桩的 http.Client，
// 也不会为上报请求再创建 span。
package xreport
