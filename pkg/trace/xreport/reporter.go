package xreport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/bytedance/sonic"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/omeyang/xtracer/pkg/context/xctx"
	"github.com/omeyang/xtracer/pkg/observability/xlog"
	"github.com/omeyang/xtracer/pkg/trace/xoutbound"
)

// 默认配置
const (
	DefaultTimeout    = 5 * time.Second
	DefaultAttempts   = 3
	DefaultRetryDelay = 200 * time.Millisecond
)

// Option Reporter 选项
type Option func(*Reporter)

// WithHTTPClient 设置发送上报请求的客户端，可以是被插桩的客户端
func WithHTTPClient(c *http.Client) Option {
	return func(r *Reporter) {
		if c != nil {
			r.client = c
		}
	}
}

// WithHeaders 设置额外 Header，必需 Header 会覆盖同名项
func WithHeaders(headers map[string]string) Option {
	return func(r *Reporter) {
		for k, v := range headers {
			r.headers.Set(k, v)
		}
	}
}

// WithServiceName 设置 localEndpoint.serviceName，默认取 span resource 中的服务名
func WithServiceName(name string) Option {
	return func(r *Reporter) {
		r.serviceName = name
	}
}

// WithServiceKey 设置读取服务名的 resource 属性名，默认 DefaultServiceKey。
// 标签注册表覆盖了 service/name 时应传入覆盖后的 key。
func WithServiceKey(key string) Option {
	return func(r *Reporter) {
		if key != "" {
			r.serviceKey = attribute.Key(key)
		}
	}
}

// WithAttempts 设置总尝试次数（含首次）
func WithAttempts(n uint) Option {
	return func(r *Reporter) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithRetryDelay 设置重试间隔
func WithRetryDelay(d time.Duration) Option {
	return func(r *Reporter) {
		if d >= 0 {
			r.retryDelay = d
		}
	}
}

// WithLogger 设置日志
func WithLogger(l xlog.Logger) Option {
	return func(r *Reporter) {
		if l != nil {
			r.logger = l
		}
	}
}

// Reporter Zipkin v2 JSON 上报器，实现 sdktrace.SpanExporter
type Reporter struct {
	endpoint    string
	client      *http.Client
	headers     http.Header
	serviceName string
	serviceKey  attribute.Key
	attempts    uint
	retryDelay  time.Duration
	logger      xlog.Logger

	stopped atomic.Bool
}

var _ sdktrace.SpanExporter = (*Reporter)(nil)

// New 创建 Reporter
func New(endpoint string, opts ...Option) (*Reporter, error) {
	if endpoint == "" {
		return nil, ErrEmptyEndpoint
	}
	r := &Reporter{
		endpoint:   endpoint,
		client:     &http.Client{Timeout: DefaultTimeout},
		headers:    make(http.Header),
		serviceKey: DefaultServiceKey,
		attempts:   DefaultAttempts,
		retryDelay: DefaultRetryDelay,
		logger:     xlog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// ExportSpans 编码并上报一批 span。Shutdown 之后为空操作。
func (r *Reporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if len(spans) == 0 || r.stopped.Load() {
		return nil
	}

	body, err := sonic.Marshal(toZipkin(spans, r.serviceName, r.serviceKey))
	if err != nil {
		return err
	}

	ctx = xctx.WithoutTracing(ctx)
	err = retry.New(
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(r.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
	).Do(func() error {
		return r.post(ctx, body)
	})
	if err != nil {
		r.logger.Warn(ctx, "span report failed", xlog.Err(err), xlog.Count(int64(len(spans))))
	}
	return err
}

// Shutdown 停止上报
func (r *Reporter) Shutdown(context.Context) error {
	r.stopped.Store(true)
	return nil
}

func (r *Reporter) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return retry.Unrecoverable(err)
	}
	for k, v := range r.headers {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("b3", "0")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	return xoutbound.ExpectStatus(resp, http.StatusAccepted)
}

// retryable 传输错误与 5xx 重试，其余不重试
func retryable(err error) bool {
	if !retry.IsRecoverable(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var bad *xoutbound.BadResponseError
	if errors.As(err, &bad) {
		return bad.StatusCode() >= http.StatusInternalServerError
	}
	return true
}
