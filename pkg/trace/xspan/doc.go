// Package xspan 提供 span 生命周期、异常标注与开关控制的核心抽象。
//
// # 组成
//
//   - Tracer/Span：与具体实现无关的追踪器契约（StartSpan/Inject/Extract/Flush）
//   - NewOTelTracer：基于 OpenTelemetry SDK 的实现；NoopTracer：空实现
//   - StartSpan：以 context 中活跃 span 为父创建子 span，标签在创建时一次性写入
//   - AppendException：将错误的类型、码、消息、堆栈写为 span 标签
//   - Switches：按插桩面（http-client/redis/db/method-call/exception）启停
//   - Tracing：把 Tracer、标签注册表、开关、日志组合在一起，供各插桩面共享
//
// # 父子关系
//
// 父 span 通过 context.Context 显式传递。StartSpan 返回的 context 携带新 span，
// 后续嵌套调用（出站 HTTP、redis、mongo）以它为父。
//
// # Flush
//
// [Tracing.ScheduleFlush] 立即返回，在独立 goroutine 中执行 Tracer.Flush，
// 并发请求合并为一次。失败只记日志与计数，不会传播到请求路径。
// 关闭时调用 [Tracing.Close] 等待进行中的 flush 结束。
package xspan
