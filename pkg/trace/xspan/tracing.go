package xspan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"

	"github.com/omeyang/xtracer/pkg/observability/xlog"
	"github.com/omeyang/xtracer/pkg/trace/xtag"
)

// DefaultFlushTimeout 单次 flush 的默认超时
const DefaultFlushTimeout = 5 * time.Second

// MetricFlushFailures flush 失败计数器名称
const MetricFlushFailures = "xtracer.flush.failures"

const meterName = "github.com/omeyang/xtracer/pkg/trace/xspan"

// Option Tracing 选项
type Option func(*options)

type options struct {
	tags          *xtag.Registry
	switches      Switches
	logger        xlog.Logger
	flushTimeout  time.Duration
	meterProvider metric.MeterProvider
}

// WithTags 设置标签注册表，默认 xtag.New()
func WithTags(r *xtag.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.tags = r
		}
	}
}

// WithSwitches 设置插桩面开关，默认 DefaultSwitches()
func WithSwitches(s Switches) Option {
	return func(o *options) {
		o.switches = s
	}
}

// WithLogger 设置日志，默认 xlog.Default()
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFlushTimeout 设置单次 flush 超时
func WithFlushTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.flushTimeout = d
		}
	}
}

// WithMeterProvider 设置 flush 失败计数器所用的 MeterProvider，默认 otel.GetMeterProvider()
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

// Tracing 插桩面共享的追踪组件：Tracer、标签注册表、开关与日志。
//
// 构建后只读，可被任意 goroutine 并发使用。
type Tracing struct {
	tracer       Tracer
	tags         *xtag.Registry
	switches     Switches
	logger       xlog.Logger
	flushTimeout time.Duration
	failures     metric.Int64Counter

	// flush 状态，均由 mu 保护。
	// running 期间的调度只置 pending，当前 flush 结束后再补一次。
	mu         sync.Mutex
	closed     bool
	running    bool
	pending    bool
	pendingCtx context.Context
	idle       chan struct{}
}

// New 创建 Tracing。tracer 为 nil 时使用 NoopTracer。
func New(tracer Tracer, opts ...Option) *Tracing {
	if tracer == nil {
		tracer = NoopTracer{}
	}
	o := options{
		switches:     DefaultSwitches(),
		flushTimeout: DefaultFlushTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.tags == nil {
		o.tags = xtag.New()
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}

	failures, err := o.meterProvider.Meter(meterName).Int64Counter(
		MetricFlushFailures,
		metric.WithDescription("Number of failed trace flushes"),
		metric.WithUnit("{flush}"),
	)
	if err != nil {
		o.logger.Warn(context.Background(), "xspan: create flush failure counter", xlog.Err(err))
		failures = metricnoop.Int64Counter{}
	}

	return &Tracing{
		tracer:       tracer,
		tags:         o.tags,
		switches:     o.switches,
		logger:       o.logger,
		flushTimeout: o.flushTimeout,
		failures:     failures,
	}
}

// Tracer 返回底层 Tracer
func (t *Tracing) Tracer() Tracer { return t.tracer }

// Tags 返回标签注册表
func (t *Tracing) Tags() *xtag.Registry { return t.tags }

// Switches 返回插桩面开关
func (t *Tracing) Switches() Switches { return t.switches }

// Enabled 判断插桩面是否开启
func (t *Tracing) Enabled(surface Surface) bool { return t.switches.Enabled(surface) }

// Logger 返回日志
func (t *Tracing) Logger() xlog.Logger { return t.logger }

// StartSpan 见包级 StartSpan
func (t *Tracing) StartSpan(ctx context.Context, name string, kind Kind, tags map[string]any) (context.Context, Span) {
	return StartSpan(ctx, t.tracer, name, tags, kind)
}

// TagKey 返回 (category, field) 的标签名，未注册或被禁用时返回空字符串
func (t *Tracing) TagKey(category, field string) string {
	return t.tags.Key(category, field)
}

// Tag 以注册表中的标签名写入 span，标签名为空时跳过
func (t *Tracing) Tag(span Span, category, field string, value any) {
	if key := t.TagKey(category, field); key != "" {
		span.SetTag(key, value)
	}
}

// RecordError 在 exception 开关打开时标注错误
func (t *Tracing) RecordError(span Span, err error) {
	if !t.switches.Exception {
		return
	}
	AppendException(span, t.tags, err)
}

// Flush 同步执行一次 flush，panic 转换为 ErrFlushPanic
func (t *Tracing) Flush(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrFlushPanic, r)
		}
	}()
	return t.tracer.Flush(ctx)
}

// ScheduleFlush 异步调度一次 flush，立即返回。
//
// flush 使用脱离取消信号的 ctx 和独立超时。已有 flush 在执行时，
// 本次调度合并为其结束后的一次补充 flush，保证调用前结束的 span 都会被刷出。
// 失败记录日志并计入 xtracer.flush.failures，不返回给调用方。
// Close 之后调用无效。
func (t *Tracing) ScheduleFlush(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	base := context.WithoutCancel(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.running {
		t.pending = true
		t.pendingCtx = base
		return
	}
	t.running = true
	t.idle = make(chan struct{})
	go t.flushLoop(base, t.idle)
}

// flushLoop 执行 flush，直到没有新的补充请求
func (t *Tracing) flushLoop(ctx context.Context, idle chan struct{}) {
	for {
		t.flushOnce(ctx)

		t.mu.Lock()
		if !t.pending {
			t.running = false
			close(idle)
			t.mu.Unlock()
			return
		}
		ctx = t.pendingCtx
		t.pending = false
		t.pendingCtx = nil
		t.mu.Unlock()
	}
}

func (t *Tracing) flushOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, t.flushTimeout)
	defer cancel()

	if err := t.Flush(ctx); err != nil {
		t.failures.Add(ctx, 1)
		t.logger.Warn(ctx, "trace flush failed", xlog.Err(err))
	}
}

// Close 停止接受新的 flush 调度并等待进行中的 flush（含补充 flush）结束。
//
// 没有进行中的 flush 时立即返回 nil，与 ctx 是否已取消无关。
func (t *Tracing) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	t.mu.Lock()
	t.closed = true
	running, idle := t.running, t.idle
	t.mu.Unlock()

	if !running {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		select {
		case <-idle:
			return nil
		default:
			return ctx.Err()
		}
	}
}
