package xprovider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/omeyang/xtracer/pkg/observability/xlog"
	"github.com/omeyang/xtracer/pkg/trace/xreport"
	"github.com/omeyang/xtracer/pkg/trace/xspan"
	"github.com/omeyang/xtracer/pkg/trace/xtag"
)

// ShutdownFunc 刷新剩余 span 并关闭追踪运行时
type ShutdownFunc func(ctx context.Context) error

// Option Build 选项
type Option func(*buildOptions)

type buildOptions struct {
	logger     xlog.Logger
	meter      metric.MeterProvider
	client     *http.Client
	propagator propagation.TextMapPropagator
	processors []sdktrace.SpanProcessor
}

// WithLogger 设置日志
func WithLogger(l xlog.Logger) Option {
	return func(o *buildOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMeterProvider 设置刷新失败计数使用的 MeterProvider
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *buildOptions) {
		if mp != nil {
			o.meter = mp
		}
	}
}

// WithReportClient 设置上报使用的 http.Client（覆盖 reporter.timeout）
func WithReportClient(c *http.Client) Option {
	return func(o *buildOptions) {
		if c != nil {
			o.client = c
		}
	}
}

// WithPropagator 设置跨进程传播器
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(o *buildOptions) {
		if p != nil {
			o.propagator = p
		}
	}
}

// WithSpanProcessor 追加 SpanProcessor（如测试用的内存导出）
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(o *buildOptions) {
		if sp != nil {
			o.processors = append(o.processors, sp)
		}
	}
}

// Build 按配置组装追踪运行时。
//
// 返回的 ShutdownFunc 先等待进行中的异步刷新，再关闭 TracerProvider（会导出剩余 span）。
func Build(ctx context.Context, cfg Config, opts ...Option) (*xspan.Tracing, ShutdownFunc, error) {
	o := &buildOptions{logger: xlog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	tags := xtag.New(cfg.Tags)
	tracingOpts := []xspan.Option{
		xspan.WithTags(tags),
		xspan.WithSwitches(cfg.Enable.Switches()),
		xspan.WithLogger(o.logger),
		xspan.WithFlushTimeout(cfg.FlushTimeout),
	}
	if o.meter != nil {
		tracingOpts = append(tracingOpts, xspan.WithMeterProvider(o.meter))
	}

	switch strings.ToLower(cfg.Driver) {
	case DriverNoop:
		tracing := xspan.New(xspan.NoopTracer{}, tracingOpts...)
		return tracing, tracing.Close, nil
	case DriverOTel, "":
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	sampler, err := newSampler(cfg.Sampler)
	if err != nil {
		return nil, nil, err
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sampler),
		sdktrace.WithResource(newResource(tags, cfg.Service)),
	}
	if cfg.Reporter.Endpoint != "" {
		client := o.client
		if client == nil {
			client = &http.Client{Timeout: cfg.Reporter.Timeout}
		}
		reporter, err := xreport.New(cfg.Reporter.Endpoint,
			xreport.WithHTTPClient(client),
			xreport.WithHeaders(cfg.Reporter.Headers),
			xreport.WithServiceName(cfg.Service.Name),
			xreport.WithServiceKey(tags.Key(xtag.CategoryService, xtag.FieldServiceName)),
			xreport.WithAttempts(cfg.Reporter.Attempts),
			xreport.WithLogger(o.logger),
		)
		if err != nil {
			return nil, nil, err
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(reporter))
	}
	for _, sp := range o.processors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(sp))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)

	var otelOpts []xspan.OTelOption
	if o.propagator != nil {
		otelOpts = append(otelOpts, xspan.WithPropagator(o.propagator))
	}
	tracing := xspan.New(xspan.NewOTelTracer(tp, otelOpts...), tracingOpts...)

	o.logger.Info(ctx, "tracer ready",
		xlog.Component(DriverOTel),
		slog.String("service", cfg.Service.Name),
		slog.String("sampler", cfg.Sampler.Type),
	)

	shutdown := func(ctx context.Context) error {
		return errors.Join(tracing.Close(ctx), tp.Shutdown(ctx))
	}
	return tracing, shutdown, nil
}

func newSampler(c SamplerConfig) (sdktrace.Sampler, error) {
	switch strings.ToLower(c.Type) {
	case SamplerConst, "":
		if c.Param >= 1 {
			return sdktrace.AlwaysSample(), nil
		}
		return sdktrace.NeverSample(), nil
	case SamplerRatio:
		return sdktrace.TraceIDRatioBased(c.Param), nil
	case SamplerParent:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.Param)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSampler, c.Type)
	}
}

// newResource 服务属性的 key 取自注册表 service 分类，被置空的 key 跳过
func newResource(tags *xtag.Registry, svc ServiceConfig) *resource.Resource {
	instanceID := svc.InstanceID
	if instanceID == "" {
		instanceID, _ = os.Hostname()
	}

	values := []struct {
		field string
		value string
	}{
		{xtag.FieldServiceName, svc.Name},
		{xtag.FieldServiceNamespace, svc.Namespace},
		{xtag.FieldServiceVersion, svc.Version},
		{xtag.FieldServiceInstanceID, instanceID},
	}
	attrs := make([]attribute.KeyValue, 0, len(values))
	for _, v := range values {
		key := tags.Key(xtag.CategoryService, v.field)
		if key == "" || v.value == "" {
			continue
		}
		attrs = append(attrs, attribute.String(key, v.value))
	}
	return resource.NewSchemaless(attrs...)
}
