package xlog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/omeyang/xtracer/pkg/context/xctx"
)

// ErrNilHandler NewEnrichHandler 的 base 为 nil
var ErrNilHandler = errors.New("xlog: base handler is nil")

// EnrichHandler 从 context 提取追踪信息追加到每条日志。
//
// 对带 enrich 的 logger 调用 WithGroup 后，注入字段会落在 group 下。
type EnrichHandler struct {
	base slog.Handler
}

// NewEnrichHandler 包装 base handler
func NewEnrichHandler(base slog.Handler) (*EnrichHandler, error) {
	if base == nil {
		return nil, ErrNilHandler
	}
	return &EnrichHandler{base: base}, nil
}

func (h *EnrichHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle 按 slog 约定先 Clone record 再追加属性
func (h *EnrichHandler) Handle(ctx context.Context, r slog.Record) error {
	var buf [xctx.TraceFieldCount]slog.Attr
	attrs := xctx.AppendTraceAttrs(buf[:0], ctx)
	if len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.base.Handle(ctx, r)
}

func (h *EnrichHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EnrichHandler{base: h.base.WithAttrs(attrs)}
}

func (h *EnrichHandler) WithGroup(name string) slog.Handler {
	return &EnrichHandler{base: h.base.WithGroup(name)}
}
