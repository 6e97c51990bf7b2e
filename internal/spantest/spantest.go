// Package spantest 提供记录型 Tracer，供各插桩面的测试断言 span 的生命周期与标签。
package spantest

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xtracer/pkg/trace/xspan"
)

// ErrFlush 供测试模拟 flush 失败
var ErrFlush = errors.New("spantest: flush failed")

// Tracer 记录所有 span 的 Tracer，并发安全。
//
// 跨进程传播使用 W3C TraceContext，Inject 只在 ctx 中有有效 span 时写入 traceparent。
type Tracer struct {
	mu      sync.Mutex
	spans   []*Span
	flushFn func(ctx context.Context) error

	nextID  atomic.Uint64
	flushes atomic.Int64

	propagator propagation.TextMapPropagator
}

var _ xspan.Tracer = (*Tracer)(nil)

// New 创建记录型 Tracer
func New() *Tracer {
	return &Tracer{propagator: propagation.TraceContext{}}
}

// SetFlushFunc 设置 Flush 的行为，默认返回 nil
func (t *Tracer) SetFlushFunc(fn func(ctx context.Context) error) {
	t.mu.Lock()
	t.flushFn = fn
	t.mu.Unlock()
}

// StartSpan 记录一个新 span，父 span 取自 ctx
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...xspan.StartOption) (context.Context, xspan.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := xspan.ApplyStartOptions(opts...)
	parent := trace.SpanContextFromContext(ctx)

	id := t.nextID.Add(1)
	var traceID trace.TraceID
	if parent.IsValid() {
		traceID = parent.TraceID()
	} else {
		binary.BigEndian.PutUint64(traceID[8:], id)
		traceID[0] = 0x7f
	}
	var spanID trace.SpanID
	binary.BigEndian.PutUint64(spanID[:], id)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	s := &Span{
		Name:   name,
		Kind:   cfg.Kind,
		Parent: parent,
		sc:     sc,
		tags:   make(map[string]any, len(cfg.Tags)),
	}
	for k, v := range cfg.Tags {
		s.tags[k] = v
	}

	t.mu.Lock()
	t.spans = append(t.spans, s)
	t.mu.Unlock()

	return trace.ContextWithSpanContext(ctx, sc), s
}

// Inject 写入 traceparent
func (t *Tracer) Inject(ctx context.Context, carrier map[string]string) {
	if ctx == nil || carrier == nil {
		return
	}
	t.propagator.Inject(ctx, propagation.MapCarrier(carrier))
}

// Extract 从 carrier 解析 traceparent
func (t *Tracer) Extract(ctx context.Context, carrier map[string]string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return t.propagator.Extract(ctx, propagation.MapCarrier(carrier))
}

// Flush 记录调用次数并执行 SetFlushFunc 设置的行为
func (t *Tracer) Flush(ctx context.Context) error {
	t.flushes.Add(1)
	t.mu.Lock()
	fn := t.flushFn
	t.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// Flushes 返回 Flush 被调用的次数
func (t *Tracer) Flushes() int {
	return int(t.flushes.Load())
}

// Spans 返回已创建的全部 span（按创建顺序）
func (t *Tracer) Spans() []*Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Span, len(t.spans))
	copy(out, t.spans)
	return out
}

// Finished 返回已结束的 span
func (t *Tracer) Finished() []*Span {
	var out []*Span
	for _, s := range t.Spans() {
		if s.Finishes() > 0 {
			out = append(out, s)
		}
	}
	return out
}

// Span 记录型 span
type Span struct {
	Name   string
	Kind   xspan.Kind
	Parent trace.SpanContext

	sc trace.SpanContext

	mu       sync.Mutex
	tags     map[string]any
	finishes int
}

// SetTag 记录标签，Finish 之后被忽略
func (s *Span) SetTag(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finishes > 0 {
		return
	}
	s.tags[key] = value
}

// Finish 记录结束次数。契约要求插桩面只调用一次，测试据此断言。
func (s *Span) Finish() {
	s.mu.Lock()
	s.finishes++
	s.mu.Unlock()
}

// SpanContext 返回 span 上下文
func (s *Span) SpanContext() trace.SpanContext {
	return s.sc
}

// Finishes 返回 Finish 被调用的次数
func (s *Span) Finishes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishes
}

// Tags 返回标签副本
func (s *Span) Tags() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.tags))
	for k, v := range s.tags {
		out[k] = v
	}
	return out
}

// Tag 返回单个标签
func (s *Span) Tag(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.tags[key]
	return v, ok
}
