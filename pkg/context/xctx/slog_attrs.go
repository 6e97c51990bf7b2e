package xctx

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// 追踪日志属性 Key，遵循 OpenTelemetry 语义约定（下划线分隔）
const (
	KeyTraceID    = "trace_id"
	KeySpanID     = "span_id"
	KeyRequestID  = "request_id"
	KeyTraceFlags = "trace_flags"

	// TraceFieldCount 追踪字段数量，用于调用方预分配
	TraceFieldCount = 4
)

// AppendTraceAttrs 将 context 中的追踪信息追加到现有切片。
//
// trace_id/span_id/trace_flags 来自 OTel span context（无效时跳过），
// request_id 来自 xctx。只追加非空字段。
func AppendTraceAttrs(attrs []slog.Attr, ctx context.Context) []slog.Attr {
	if ctx == nil {
		return attrs
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String(KeyTraceID, sc.TraceID().String()),
			slog.String(KeySpanID, sc.SpanID().String()),
			slog.String(KeyTraceFlags, sc.TraceFlags().String()),
		)
	}
	if v := RequestID(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyRequestID, v))
	}
	return attrs
}

// TraceAttrs 从 context 提取追踪信息，都为空时返回 nil。
func TraceAttrs(ctx context.Context) []slog.Attr {
	attrs := AppendTraceAttrs(make([]slog.Attr, 0, TraceFieldCount), ctx)
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}
