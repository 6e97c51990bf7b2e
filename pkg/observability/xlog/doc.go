// Package xlog 基于 log/slog 的结构化日志。
//
// # 创建 Logger
//
// Builder 模式，遇到第一个配置错误后 Build 返回该错误：
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		SetRotation("/var/log/app.log", xlog.WithMaxSize(100)).
//		Build()
//	defer cleanup()
//
// # 追踪信息注入
//
// 默认启用 [EnrichHandler]：每条日志从 context 追加 trace_id、span_id、
// trace_flags（OTel span context）与 request_id（xctx）。缺失的字段跳过。
//
// # 全局 Logger
//
// [Default] 惰性创建（stderr、Info、text），[SetDefault] 替换。
// 库内部组件在未注入 Logger 时使用它。
package xlog
