package xrun

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xtracer/pkg/observability/xlog"
)

// Group 并发运行服务，任一失败即取消其余。Wait 只应调用一次。
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions
}

// NewGroup 创建 Group，返回的 context 在任一服务出错或 Cancel 时取消
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}

	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{eg: eg, ctx: egCtx, causeCtx: causeCtx, cancel: cancel, opts: o}, egCtx
}

// Go 启动服务，fn 应在 ctx 取消后返回
func (g *Group) Go(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		attrs := []slog.Attr{slog.String("group", g.opts.name), slog.String("service", name)}
		g.opts.logger.Debug(g.ctx, "service starting", attrs...)

		err := fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.opts.logger.Warn(g.ctx, "service exited with error", append(attrs, xlog.Err(err))...)
		} else {
			g.opts.logger.Debug(g.ctx, "service stopped", attrs...)
		}
		return err
	})
}

// Cancel 主动关闭，cause 由 Wait 返回
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Wait 等待全部服务退出。
//
// 因取消产生的 context.Canceled 被过滤；Cancel 给出的 cause（如 *SignalError）优先返回。
func (g *Group) Wait() error {
	defer g.cancel(nil)
	err := g.eg.Wait()

	cause := context.Cause(g.causeCtx)
	if cause != nil && errors.Is(cause, context.Canceled) {
		cause = nil
	}
	switch {
	case err == nil:
		return cause
	case errors.Is(err, context.Canceled) && g.causeCtx.Err() != nil:
		return cause
	default:
		return err
	}
}

// Run 监听退出信号并运行服务，收到信号时返回 *SignalError
func Run(ctx context.Context, services ...func(ctx context.Context) error) error {
	return RunWithOptions(ctx, nil, services...)
}

// RunWithOptions 同 Run，支持选项
func RunWithOptions(ctx context.Context, opts []Option, services ...func(ctx context.Context) error) error {
	g, _ := NewGroup(ctx, opts...)
	if !g.opts.noSignals {
		g.Go("signal", g.waitSignal)
	}
	for _, svc := range services {
		g.Go("service", svc)
	}
	return g.Wait()
}

func (g *Group) waitSignal(ctx context.Context) error {
	ch := g.opts.sigCh
	if ch == nil {
		signals := g.opts.signals
		if len(signals) == 0 {
			signals = DefaultSignals()
		}
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, signals...)
		defer signal.Stop(sigCh)
		ch = sigCh
	}

	select {
	case sig := <-ch:
		g.opts.logger.Info(ctx, "received signal",
			slog.String("group", g.opts.name),
			slog.String("signal", sig.String()),
		)
		g.cancel(&SignalError{Signal: sig})
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HTTPServerInterface *http.Server 满足此接口
type HTTPServerInterface interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServer 运行 server，ctx 取消后在 shutdownTimeout 内优雅关闭（<=0 表示不限时）
func HTTPServer(server HTTPServerInterface, shutdownTimeout time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if server == nil {
			return ErrNilServer
		}
		shutdownErr := make(chan error, 1)
		listenDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				shutdownErr <- callWithTimeout(server.Shutdown, shutdownTimeout)
			case <-listenDone:
			}
		}()

		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			select {
			case <-ctx.Done():
				return <-shutdownErr
			default:
				// 外部直接关闭
				close(listenDone)
				return nil
			}
		}
		close(listenDone)
		return err
	}
}

// OnShutdown 阻塞到 ctx 取消，然后在 timeout 内执行 fn（如关闭 TracerProvider）
func OnShutdown(fn func(ctx context.Context) error, timeout time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if fn == nil {
			return ErrNilFunc
		}
		<-ctx.Done()
		return callWithTimeout(fn, timeout)
	}
}

func callWithTimeout(fn func(ctx context.Context) error, timeout time.Duration) error {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}
