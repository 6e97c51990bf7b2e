package xprovider_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/omeyang/xtracer/pkg/trace/xprovider"
	"github.com/omeyang/xtracer/pkg/trace/xspan"
	"github.com/omeyang/xtracer/pkg/trace/xtag"
)

func build(t *testing.T, cfg xprovider.Config, opts ...xprovider.Option) (*xspan.Tracing, xprovider.ShutdownFunc) {
	t.Helper()
	tracing, shutdown, err := xprovider.Build(t.Context(), cfg, opts...)
	require.NoError(t, err)
	return tracing, shutdown
}

func TestBuild_UnknownDriver(t *testing.T) {
	cfg := xprovider.Default()
	cfg.Driver = "jaeger"
	_, _, err := xprovider.Build(t.Context(), cfg)
	assert.ErrorIs(t, err, xprovider.ErrUnknownDriver)
}

func TestBuild_UnknownSampler(t *testing.T) {
	cfg := xprovider.Default()
	cfg.Sampler.Type = "adaptive"
	_, _, err := xprovider.Build(t.Context(), cfg)
	assert.ErrorIs(t, err, xprovider.ErrUnknownSampler)
}

func TestBuild_Noop(t *testing.T) {
	cfg := xprovider.Default()
	cfg.Driver = xprovider.DriverNoop

	tracing, shutdown := build(t, cfg)
	_, span := tracing.StartSpan(t.Context(), "op", xspan.KindServer, nil)
	span.Finish()
	assert.False(t, span.SpanContext().IsValid())
	assert.IsType(t, xspan.NoopTracer{}, tracing.Tracer())
	require.NoError(t, shutdown(context.Background()))
}

func TestBuild_OTel(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	cfg := xprovider.Default()
	cfg.Service = xprovider.ServiceConfig{Name: "orders", Version: "1.0.0", InstanceID: "pod-1"}
	cfg.Enable.Redis = false
	cfg.Tags = xtag.Tags{
		"service": {"version": "app.version"},
		"http":    {"method": "http.request.method"},
	}

	tracing, shutdown := build(t, cfg, xprovider.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))

	assert.False(t, tracing.Enabled(xspan.SurfaceRedis))
	assert.True(t, tracing.Enabled(xspan.SurfaceHTTPClient))
	assert.Equal(t, "http.request.method", tracing.TagKey(xtag.CategoryHTTP, xtag.FieldHTTPMethod))

	ctx, parent := tracing.StartSpan(t.Context(), "GET /orders", xspan.KindServer, nil)
	_, child := tracing.StartSpan(ctx, "child", xspan.KindClient, nil)
	child.Finish()
	parent.Finish()

	// InMemoryExporter 在 Shutdown 时清空，先取结果
	spans := exporter.GetSpans()
	require.NoError(t, shutdown(context.Background()))
	require.Len(t, spans, 2)
	assert.Equal(t, parent.SpanContext().SpanID(), spans[0].Parent.SpanID())

	res := spans[1].Resource.Set()
	v, ok := res.Value(attribute.Key("service.name"))
	require.True(t, ok)
	assert.Equal(t, "orders", v.AsString())
	v, ok = res.Value(attribute.Key("app.version"))
	require.True(t, ok)
	assert.Equal(t, "1.0.0", v.AsString())
	v, ok = res.Value(attribute.Key("service.instance.id"))
	require.True(t, ok)
	assert.Equal(t, "pod-1", v.AsString())
	_, ok = res.Value(attribute.Key("service.namespace"))
	assert.False(t, ok)
}

func TestBuild_SamplerConstOff(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	cfg := xprovider.Default()
	cfg.Sampler.Param = 0

	tracing, shutdown := build(t, cfg, xprovider.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))
	_, span := tracing.StartSpan(t.Context(), "dropped", xspan.KindServer, nil)
	span.Finish()

	assert.Empty(t, exporter.GetSpans())
	require.NoError(t, shutdown(context.Background()))
}

func TestBuild_Reporter(t *testing.T) {
	var posts atomic.Int32
	var auth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		auth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)

	cfg := xprovider.Default()
	cfg.Reporter.Endpoint = srv.URL + "/api/v2/spans"
	cfg.Reporter.Headers = map[string]string{"Authorization": "Bearer t"}

	tracing, shutdown := build(t, cfg, xprovider.WithReportClient(srv.Client()))
	_, span := tracing.StartSpan(t.Context(), "reported", xspan.KindServer, nil)
	span.Finish()

	// 关闭时批处理器导出剩余 span
	require.NoError(t, shutdown(context.Background()))
	assert.EqualValues(t, 1, posts.Load())
	assert.Equal(t, "Bearer t", auth.Load())
}

func TestBuild_ReporterServiceNameWithOverriddenKey(t *testing.T) {
	bodies := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies <- body
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)

	cfg := xprovider.Default()
	cfg.Service.Name = "orders"
	cfg.Reporter.Endpoint = srv.URL
	cfg.Tags = xtag.Tags{xtag.CategoryService: {xtag.FieldServiceName: "app.service"}}

	tracing, shutdown := build(t, cfg, xprovider.WithReportClient(srv.Client()))
	_, span := tracing.StartSpan(t.Context(), "reported", xspan.KindServer, nil)
	span.Finish()
	require.NoError(t, shutdown(context.Background()))

	var spans []map[string]any
	require.NoError(t, sonic.Unmarshal(<-bodies, &spans))
	require.Len(t, spans, 1)
	assert.Equal(t, map[string]any{"serviceName": "orders"}, spans[0]["localEndpoint"])
}
