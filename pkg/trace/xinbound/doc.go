// Package xinbound 为入站 HTTP 请求创建 server span。
//
// # 生命周期
//
// 每个请求恰好一个 span，在所有退出路径（正常返回、返回错误、panic）上恰好结束一次。
// 响应结束后异步调度一次 flush。
//
//	Idle → SpanStarted → HandlerInvoked → {Success | Failed} → Finished
//
// # 父上下文
//
// 依次取：请求 context 中的活跃 span、从请求头提取的远端上下文（W3C traceparent）、新的根 span。
//
// # 路由
//
// 操作名为 "<METHOD> <ROUTE>"。ROUTE 的解析顺序：
//
//  1. 路由框架通过 [WithDispatched] 挂在 context 上的分发结果：命中取路由模板，未命中为 not_found
//  2. 通过 [WithRouter] 配置的 Router（*http.ServeMux 直接满足）：无匹配为 not_found
//  3. 原始 URL path
//
// # 适配
//
//   - [Interceptor.Middleware]：标准 http.Handler 中间件，panic 视为抛出的错误
//   - [Interceptor.HandlerFunc]：返回 error 的处理函数，错误由 ErrorWriter 渲染
//   - gin 见 xgin 包
package xinbound
