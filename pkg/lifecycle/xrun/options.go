package xrun

import (
	"os"
	"syscall"

	"github.com/omeyang/xtracer/pkg/observability/xlog"
)

// Option Group 选项
type Option func(*groupOptions)

type groupOptions struct {
	logger    xlog.Logger
	name      string
	signals   []os.Signal
	sigCh     <-chan os.Signal
	noSignals bool
}

func defaultOptions() *groupOptions {
	return &groupOptions{name: "xrun"}
}

// DefaultSignals SIGHUP、SIGINT、SIGTERM、SIGQUIT
func DefaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}
}

// WithLogger 生命周期事件日志，默认 xlog.Default()
func WithLogger(l xlog.Logger) Option {
	return func(o *groupOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithName(name string) Option {
	return func(o *groupOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithSignals 覆盖 Run 监听的信号
func WithSignals(signals ...os.Signal) Option {
	copied := append([]os.Signal(nil), signals...)
	return func(o *groupOptions) {
		o.signals = copied
	}
}

// WithSignalChannel 从给定通道接收退出信号，替代 signal.Notify
func WithSignalChannel(ch <-chan os.Signal) Option {
	return func(o *groupOptions) {
		o.sigCh = ch
	}
}

// WithoutSignalHandler Run 不监听信号
func WithoutSignalHandler() Option {
	return func(o *groupOptions) {
		o.noSignals = true
	}
}
