package xctx_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xtracer/pkg/context/xctx"
)

func TestRequestID(t *testing.T) {
	ctx, err := xctx.WithRequestID(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, "req-1", xctx.RequestID(ctx))
	assert.Empty(t, xctx.RequestID(context.Background()))

	//nolint:staticcheck // 验证 nil ctx 处理
	_, err = xctx.WithRequestID(nil, "x")
	assert.ErrorIs(t, err, xctx.ErrNilContext)
}

func TestEnsureRequestID(t *testing.T) {
	t.Run("缺失时生成 UUID", func(t *testing.T) {
		ctx, err := xctx.EnsureRequestID(context.Background())
		require.NoError(t, err)
		_, parseErr := uuid.Parse(xctx.RequestID(ctx))
		assert.NoError(t, parseErr)
	})

	t.Run("已存在时保持原值", func(t *testing.T) {
		ctx, _ := xctx.WithRequestID(context.Background(), "keep")
		ctx, err := xctx.EnsureRequestID(ctx)
		require.NoError(t, err)
		assert.Equal(t, "keep", xctx.RequestID(ctx))
	})
}

func TestWithoutTracing(t *testing.T) {
	assert.False(t, xctx.TracingBypassed(context.Background()))
	assert.True(t, xctx.TracingBypassed(xctx.WithoutTracing(context.Background())))
	//nolint:staticcheck // 验证 nil ctx 归一化
	assert.True(t, xctx.TracingBypassed(xctx.WithoutTracing(nil)))
}

func TestSource(t *testing.T) {
	ctx, err := xctx.WithSource(context.Background(), "billing.Charge")
	require.NoError(t, err)
	assert.Equal(t, "billing.Charge", xctx.Source(ctx))
	assert.Empty(t, xctx.Source(context.Background()))
}

func TestAppendTraceAttrs(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	spanID, _ := trace.SpanIDFromHex("b7ad6b7169203331")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx, _ = xctx.WithRequestID(ctx, "req-9")

	attrs := xctx.TraceAttrs(ctx)
	got := make(map[string]string, len(attrs))
	for _, a := range attrs {
		got[a.Key] = a.Value.String()
	}

	assert.Equal(t, map[string]string{
		xctx.KeyTraceID:    "0af7651916cd43dd8448eb211c80319c",
		xctx.KeySpanID:     "b7ad6b7169203331",
		xctx.KeyTraceFlags: "01",
		xctx.KeyRequestID:  "req-9",
	}, got)
}

func TestTraceAttrs_Empty(t *testing.T) {
	assert.Nil(t, xctx.TraceAttrs(context.Background()))
	//nolint:staticcheck // 验证 nil ctx 处理
	assert.Equal(t, []slog.Attr(nil), xctx.AppendTraceAttrs(nil, nil))
}
