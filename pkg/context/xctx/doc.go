// Package xctx 提供请求级追踪上下文的存取。
//
// span 本身由 OpenTelemetry 放在 context 中传递；xctx 只保存拦截器需要、
// 但 OTel 不携带的请求级信息，并为日志系统提供属性提取。
//
// # 核心字段
//
//   - request_id : 请求标识（来自 X-Request-ID 或自动生成），作为请求级并发单元标识
//   - bypass     : 跳过追踪标志（出站调用不创建 span、不注入 Header）
//   - source     : 出站调用的调用点标识（覆盖自动探测）
//
// # 命名约定
//
//	WithXxx(ctx, value)    - 注入：将 value 写入 context
//	Xxx(ctx)               - 读取：从 context 读取值，缺失时返回零值
//	EnsureXxx(ctx)         - 确保：缺失时自动生成并注入
//
// # 跳过追踪
//
// 链路上报本身也走 HTTP 客户端。上报请求必须携带 [WithoutTracing]，
// 否则被插桩的客户端会为上报请求再创建 span，形成无限递归。
//
// # 日志集成
//
// [AppendTraceAttrs] 从 OTel span context 中读取 trace_id/span_id/trace_flags，
// 从 xctx 读取 request_id，供 xlog.EnrichHandler 在热路径上零分配追加。
package xctx
