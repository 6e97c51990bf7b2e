package xspan_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/omeyang/xtracer/internal/spantest"
	"github.com/omeyang/xtracer/pkg/observability/xlog"
	"github.com/omeyang/xtracer/pkg/trace/xspan"
	"github.com/omeyang/xtracer/pkg/trace/xtag"
)

func newLogger(t *testing.T) (xlog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, cleanup, err := xlog.New().SetOutput(&buf).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })
	return logger, &buf
}

func flushFailures(t *testing.T, reader *sdkmetric.ManualReader) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != xspan.MetricFlushFailures {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestTracing_Defaults(t *testing.T) {
	tr := xspan.New(nil)
	assert.IsType(t, xspan.NoopTracer{}, tr.Tracer())
	assert.Equal(t, xspan.DefaultSwitches(), tr.Switches())
	assert.Equal(t, "http.url", tr.TagKey(xtag.CategoryHTTP, xtag.FieldHTTPURL))
	require.NoError(t, tr.Close(context.Background()))
}

func TestTracing_TagSkipsDisabledKey(t *testing.T) {
	tr := xspan.New(spantest.New(), xspan.WithTags(xtag.New(xtag.Tags{
		xtag.CategoryHTTP: {xtag.FieldHTTPScheme: ""},
	})))
	span := newSpan(t)

	tr.Tag(span, xtag.CategoryHTTP, xtag.FieldHTTPScheme, "https")
	tr.Tag(span, xtag.CategoryHTTP, xtag.FieldHTTPMethod, "GET")
	tr.Tag(span, "unknown", "field", "x")

	assert.Equal(t, map[string]any{"http.method": "GET"}, span.Tags())
}

func TestTracing_RecordErrorRespectsSwitch(t *testing.T) {
	off := xspan.DefaultSwitches()
	off.Exception = false

	span := newSpan(t)
	xspan.New(nil, xspan.WithSwitches(off)).RecordError(span, errors.New("x"))
	assert.Empty(t, span.Tags())

	span = newSpan(t)
	xspan.New(nil).RecordError(span, errors.New("x"))
	assert.Equal(t, "x", span.Tags()["exception.message"])
}

func TestTracing_ScheduleFlushRunsAsync(t *testing.T) {
	tracer := spantest.New()
	release := make(chan struct{})
	tracer.SetFlushFunc(func(context.Context) error {
		<-release
		return nil
	})
	tr := xspan.New(tracer)

	start := time.Now()
	tr.ScheduleFlush(t.Context())
	assert.Less(t, time.Since(start), time.Second)

	close(release)
	require.NoError(t, tr.Close(context.Background()))
	assert.Equal(t, 1, tracer.Flushes())
}

func TestTracing_ScheduleFlushIgnoresCallerCancel(t *testing.T) {
	tracer := spantest.New()
	var sawCancel atomic.Bool
	tracer.SetFlushFunc(func(ctx context.Context) error {
		if ctx.Err() != nil {
			sawCancel.Store(true)
		}
		return nil
	})
	tr := xspan.New(tracer)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	tr.ScheduleFlush(ctx)
	require.NoError(t, tr.Close(context.Background()))

	assert.Equal(t, 1, tracer.Flushes())
	assert.False(t, sawCancel.Load())
}

func TestTracing_SchedulesDuringFlushRunOneTrailingFlush(t *testing.T) {
	tracer := spantest.New()
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	tracer.SetFlushFunc(func(context.Context) error {
		once.Do(func() {
			close(entered)
			<-release
		})
		return nil
	})
	tr := xspan.New(tracer)

	tr.ScheduleFlush(t.Context())
	<-entered
	for range 10 {
		tr.ScheduleFlush(t.Context())
	}
	close(release)
	require.NoError(t, tr.Close(context.Background()))

	// 第一次 flush 加一次补充 flush
	assert.Equal(t, 2, tracer.Flushes())
}

// gatedExporter 第一次导出时阻塞，直到 release 关闭
type gatedExporter struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once

	mu    sync.Mutex
	names []string
}

func (e *gatedExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	e.once.Do(func() {
		close(e.entered)
		<-e.release
	})
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range spans {
		e.names = append(e.names, s.Name())
	}
	return nil
}

func (e *gatedExporter) Shutdown(context.Context) error { return nil }

func (e *gatedExporter) exported() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.names...)
}

func TestTracing_SpanFinishedDuringFlushIsFlushed(t *testing.T) {
	exp := &gatedExporter{entered: make(chan struct{}), release: make(chan struct{})}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(time.Hour)))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	tr := xspan.New(xspan.NewOTelTracer(tp))

	_, a := tr.StartSpan(t.Context(), "request-A", xspan.KindServer, nil)
	a.Finish()
	tr.ScheduleFlush(t.Context())
	<-exp.entered

	// A 的导出进行中，B 结束并调度 flush
	_, b := tr.StartSpan(t.Context(), "request-B", xspan.KindServer, nil)
	b.Finish()
	tr.ScheduleFlush(t.Context())

	close(exp.release)
	require.NoError(t, tr.Close(context.Background()))

	assert.Equal(t, []string{"request-A", "request-B"}, exp.exported())
}

func TestTracing_FlushFailureIsLoggedAndCounted(t *testing.T) {
	tracer := spantest.New()
	tracer.SetFlushFunc(func(context.Context) error { return spantest.ErrFlush })

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	logger, buf := newLogger(t)
	tr := xspan.New(tracer, xspan.WithLogger(logger), xspan.WithMeterProvider(mp))

	tr.ScheduleFlush(t.Context())
	require.NoError(t, tr.Close(context.Background()))

	assert.Equal(t, int64(1), flushFailures(t, reader))
	assert.Contains(t, buf.String(), "trace flush failed")
	assert.Contains(t, buf.String(), spantest.ErrFlush.Error())
}

func TestTracing_FlushPanicIsContained(t *testing.T) {
	tracer := spantest.New()
	tracer.SetFlushFunc(func(context.Context) error { panic("exporter exploded") })

	logger, buf := newLogger(t)
	tr := xspan.New(tracer, xspan.WithLogger(logger))

	err := tr.Flush(t.Context())
	require.ErrorIs(t, err, xspan.ErrFlushPanic)

	tr.ScheduleFlush(t.Context())
	require.NoError(t, tr.Close(context.Background()))
	assert.Contains(t, buf.String(), "exporter exploded")
}

func TestTracing_FlushTimeout(t *testing.T) {
	tracer := spantest.New()
	tracer.SetFlushFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	logger, buf := newLogger(t)
	tr := xspan.New(tracer, xspan.WithLogger(logger), xspan.WithFlushTimeout(20*time.Millisecond))

	tr.ScheduleFlush(t.Context())
	require.NoError(t, tr.Close(context.Background()))
	assert.Contains(t, buf.String(), context.DeadlineExceeded.Error())
}

func TestTracing_ScheduleAfterCloseIsNoop(t *testing.T) {
	tracer := spantest.New()
	tr := xspan.New(tracer)
	require.NoError(t, tr.Close(context.Background()))

	tr.ScheduleFlush(t.Context())
	require.NoError(t, tr.Close(context.Background()))
	assert.Equal(t, 0, tracer.Flushes())
}

func TestTracing_CloseHonorsContext(t *testing.T) {
	tracer := spantest.New()
	release := make(chan struct{})
	tracer.SetFlushFunc(func(context.Context) error {
		<-release
		return nil
	})
	tr := xspan.New(tracer)
	tr.ScheduleFlush(t.Context())

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tr.Close(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, tr.Close(context.Background()))
}

func TestTracing_CloseIdleIgnoresCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	t.Run("从未调度", func(t *testing.T) {
		for range 100 {
			assert.NoError(t, xspan.New(nil).Close(ctx))
		}
	})

	t.Run("flush 已完成", func(t *testing.T) {
		tracer := spantest.New()
		tr := xspan.New(tracer)
		tr.ScheduleFlush(context.Background())
		require.Eventually(t, func() bool { return tracer.Flushes() == 1 }, time.Second, time.Millisecond)
		require.NoError(t, tr.Close(context.Background()))
		assert.NoError(t, tr.Close(ctx))
	})
}
