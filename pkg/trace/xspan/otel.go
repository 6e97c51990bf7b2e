package xspan

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const defaultInstrumentationName = "github.com/omeyang/xtracer"

// flusher 由 sdktrace.TracerProvider 实现
type flusher interface {
	ForceFlush(ctx context.Context) error
}

// OTelOption OTel Tracer 选项
type OTelOption func(*otelTracer)

// WithPropagator 设置跨进程传播器，默认 W3C TraceContext + Baggage
func WithPropagator(p propagation.TextMapPropagator) OTelOption {
	return func(t *otelTracer) {
		if p != nil {
			t.propagator = p
		}
	}
}

// WithInstrumentationName 设置 instrumentation scope 名称
func WithInstrumentationName(name string) OTelOption {
	return func(t *otelTracer) {
		if name != "" {
			t.name = name
		}
	}
}

type otelTracer struct {
	provider   trace.TracerProvider
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	name       string
}

// NewOTelTracer 基于 OTel TracerProvider 创建 Tracer。
//
// provider 为 nil 时使用 otel.GetTracerProvider()。
// provider 实现 ForceFlush 时（如 sdktrace.TracerProvider），Flush 委托给它。
func NewOTelTracer(provider trace.TracerProvider, opts ...OTelOption) Tracer {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	t := &otelTracer{
		provider: provider,
		propagator: propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
		name: defaultInstrumentationName,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	t.tracer = provider.Tracer(t.name)
	return t
}

func (t *otelTracer) StartSpan(ctx context.Context, name string, opts ...StartOption) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := ApplyStartOptions(opts...)

	startOpts := []trace.SpanStartOption{trace.WithSpanKind(mapSpanKind(cfg.Kind))}
	if len(cfg.Tags) > 0 {
		attrs := make([]attribute.KeyValue, 0, len(cfg.Tags))
		for k, v := range cfg.Tags {
			attrs = append(attrs, toKeyValue(k, v))
		}
		startOpts = append(startOpts, trace.WithAttributes(attrs...))
	}

	ctx, span := t.tracer.Start(ctx, name, startOpts...)
	return ctx, &otelSpan{span: span}
}

func (t *otelTracer) Inject(ctx context.Context, carrier map[string]string) {
	if ctx == nil || carrier == nil {
		return
	}
	t.propagator.Inject(ctx, propagation.MapCarrier(carrier))
}

func (t *otelTracer) Extract(ctx context.Context, carrier map[string]string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(carrier) == 0 {
		return ctx
	}
	return t.propagator.Extract(ctx, propagation.MapCarrier(carrier))
}

func (t *otelTracer) Flush(ctx context.Context) error {
	f, ok := t.provider.(flusher)
	if !ok {
		return nil
	}
	return f.ForceFlush(ctx)
}

type otelSpan struct {
	span     trace.Span
	finished atomic.Bool
}

func (s *otelSpan) SetTag(key string, value any) {
	if s.finished.Load() || key == "" {
		return
	}
	s.span.SetAttributes(toKeyValue(key, value))
	if key == TagOTelStatusCode && value == StatusOK {
		s.span.SetStatus(codes.Ok, "")
	}
}

func (s *otelSpan) Finish() {
	if s.finished.CompareAndSwap(false, true) {
		s.span.End()
	}
}

func (s *otelSpan) SpanContext() trace.SpanContext {
	return s.span.SpanContext()
}

func mapSpanKind(kind Kind) trace.SpanKind {
	switch kind {
	case KindServer:
		return trace.SpanKindServer
	case KindClient:
		return trace.SpanKindClient
	case KindProducer:
		return trace.SpanKindProducer
	case KindConsumer:
		return trace.SpanKindConsumer
	default:
		return trace.SpanKindInternal
	}
}

func toKeyValue(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int32:
		return attribute.Int64(key, int64(v))
	case int64:
		return attribute.Int64(key, v)
	case uint64:
		if v <= math.MaxInt64 {
			return attribute.Int64(key, int64(v))
		}
		return attribute.String(key, fmt.Sprint(v))
	case float64:
		return attribute.Float64(key, v)
	case float32:
		return attribute.Float64(key, float64(v))
	// 耗时统一以毫秒写入
	case time.Duration:
		return attribute.Int64(key, v.Milliseconds())
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
