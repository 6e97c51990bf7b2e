// Package xoutbound 为出站 HTTP 调用创建 client span 并注入追踪上下文。
//
// # 生命周期
//
//	Idle → Bypassed
//	Idle → SpanStarted → CallInvoked → {Success | Failed} → Finished
//
// http-client 开关关闭，或 ctx 带有 xctx.WithoutTracing 标记时直接委托，
// 不创建 span、不改动 Header。链路上报走同一个客户端时依赖这一点避免递归。
//
// # Header 合并
//
// 追踪上下文注入到文本载体后合并进调用方 Header 的副本：
// 调用方的其他 Header 保留，与追踪传播 key 同名的 Header 被追踪值覆盖，
// 保证分布式链路连通。调用方传入的 Header 本身不被修改。
//
// # 适配
//
//   - [Do]：泛型核心，任意客户端调用都可包装
//   - [Interceptor.Transport]：http.RoundTripper，标准 http.Client 直接使用
//   - resty 见 xresty 包
package xoutbound
