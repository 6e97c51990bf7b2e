package xctx

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// contextKey 为包私有类型，值带 "xctx:" 前缀。
type contextKey string

const (
	keyRequestID = contextKey("xctx:request_id")
	keyBypass    = contextKey("xctx:bypass")
	keySource    = contextKey("xctx:source")
)

// ErrNilContext 表示传入的 context 为 nil。
var ErrNilContext = errors.New("xctx: nil context")

// =============================================================================
// RequestID
// =============================================================================

// WithRequestID 将 request ID 注入 context
func WithRequestID(ctx context.Context, requestID string) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, keyRequestID, requestID), nil
}

// RequestID 从 context 提取 request ID，不存在返回空字符串
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(keyRequestID).(string); ok {
		return v
	}
	return ""
}

// EnsureRequestID 确保 context 中存在 RequestID。
//
// 已存在时原样返回；否则生成 UUID 并注入。
func EnsureRequestID(ctx context.Context) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if RequestID(ctx) != "" {
		return ctx, nil
	}
	return WithRequestID(ctx, GenerateRequestID())
}

// GenerateRequestID 生成新的请求 ID（UUID v4）。
func GenerateRequestID() string {
	return uuid.NewString()
}

// =============================================================================
// 跳过追踪
// =============================================================================

// WithoutTracing 标记 context 上的出站调用跳过追踪。
//
// nil ctx 视为 context.Background()。
func WithoutTracing(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, keyBypass, true)
}

// TracingBypassed 判断 context 是否标记了跳过追踪。
func TracingBypassed(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(keyBypass).(bool)
	return v
}

// =============================================================================
// 调用点
// =============================================================================

// WithSource 显式指定出站调用的调用点标识（如 "billing.Client.Charge"）。
func WithSource(ctx context.Context, source string) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, keySource, source), nil
}

// Source 从 context 提取调用点标识，不存在返回空字符串
func Source(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(keySource).(string); ok {
		return v
	}
	return ""
}
