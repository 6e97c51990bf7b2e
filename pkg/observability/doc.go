// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，自动注入 trace_id/span_id
//
// 链路追踪本身位于 pkg/trace 下。
package observability
