package xspan

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Kind span 类型
type Kind int

const (
	// KindInternal 进程内调用
	KindInternal Kind = iota
	// KindServer 入站请求
	KindServer
	// KindClient 出站调用
	KindClient
	// KindProducer 消息生产
	KindProducer
	// KindConsumer 消息消费
	KindConsumer
)

// String 返回写入 kind 标签的值
func (k Kind) String() string {
	switch k {
	case KindServer:
		return "server"
	case KindClient:
		return "client"
	case KindProducer:
		return "producer"
	case KindConsumer:
		return "consumer"
	default:
		return "internal"
	}
}

// Tracer 追踪器契约
//
// 实现必须并发安全。carrier 是文本键值载体，key 使用小写。
type Tracer interface {
	// StartSpan 以 ctx 中的活跃 span（本地或从载体提取的远端 span）为父创建 span，
	// 没有则创建根 span。返回的 context 携带新 span。
	StartSpan(ctx context.Context, name string, opts ...StartOption) (context.Context, Span)

	// Inject 将 ctx 中的追踪上下文写入 carrier
	Inject(ctx context.Context, carrier map[string]string)

	// Extract 从 carrier 提取远端追踪上下文，返回携带它的 context
	Extract(ctx context.Context, carrier map[string]string) context.Context

	// Flush 将已结束但未导出的 span 推送到后端
	Flush(ctx context.Context) error
}

// Span 追踪 span
//
// Finish 是终态且幂等，Finish 之后的 SetTag 被忽略。
type Span interface {
	SetTag(key string, value any)
	Finish()
	SpanContext() trace.SpanContext
}

// StatusCoder 携带协议状态码的错误（HTTP 异常、非预期响应）
type StatusCoder interface {
	StatusCode() int
}

// StartConfig StartSpan 的可选配置
type StartConfig struct {
	Kind Kind
	Tags map[string]any
}

// StartOption StartSpan 选项
type StartOption func(*StartConfig)

// WithKind 设置 span 类型
func WithKind(kind Kind) StartOption {
	return func(c *StartConfig) {
		c.Kind = kind
	}
}

// WithStartTags 设置创建时写入的标签
func WithStartTags(tags map[string]any) StartOption {
	return func(c *StartConfig) {
		c.Tags = tags
	}
}

// ApplyStartOptions 合并选项，供 Tracer 实现使用
func ApplyStartOptions(opts ...StartOption) StartConfig {
	var cfg StartConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
