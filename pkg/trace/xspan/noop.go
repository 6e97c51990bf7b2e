package xspan

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// NoopTracer 空实现，追踪关闭时使用
type NoopTracer struct{}

var _ Tracer = NoopTracer{}

// StartSpan 返回原 ctx 与空 span
func (NoopTracer) StartSpan(ctx context.Context, _ string, _ ...StartOption) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, noopSpan{}
}

// Inject 空操作
func (NoopTracer) Inject(context.Context, map[string]string) {}

// Extract 原样返回 ctx
func (NoopTracer) Extract(ctx context.Context, _ map[string]string) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// Flush 空操作
func (NoopTracer) Flush(context.Context) error { return nil }

type noopSpan struct{}

func (noopSpan) SetTag(string, any)             {}
func (noopSpan) Finish()                        {}
func (noopSpan) SpanContext() trace.SpanContext { return trace.SpanContext{} }
