package xrun

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrSignal 因系统信号退出，配合 errors.Is 使用
	ErrSignal = errors.New("received signal")
	// ErrNilFunc 服务函数为 nil
	ErrNilFunc = errors.New("xrun: nil function")
	// ErrNilServer HTTPServer 的 server 为 nil
	ErrNilServer = errors.New("xrun: nil server")
)

// SignalError 携带触发退出的信号
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("received signal %v", e.Signal)
}

func (e *SignalError) Unwrap() error { return ErrSignal }
