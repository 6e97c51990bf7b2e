package xspan

import "context"

// StartSpan 创建 span 并在创建时一次性写入 tags。
//
// 父 span 取自 ctx（本地活跃 span 或已提取的远端上下文），没有则为根 span。
// 返回的 context 携带新 span，供嵌套调用使用。
// ctx 为 nil 时视为 context.Background()，tracer 为 nil 时返回空 span。
func StartSpan(ctx context.Context, tracer Tracer, name string, tags map[string]any, kind Kind) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tracer == nil {
		return NoopTracer{}.StartSpan(ctx, name)
	}
	return tracer.StartSpan(ctx, name, WithKind(kind), WithStartTags(tags))
}
