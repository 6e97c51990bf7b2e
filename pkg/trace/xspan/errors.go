package xspan

import "errors"

var (
	// ErrUnknownSurface 未知的插桩面名称
	ErrUnknownSurface = errors.New("xspan: unknown surface")

	// ErrFlushPanic Tracer.Flush 发生 panic
	ErrFlushPanic = errors.New("xspan: flush panicked")

	// ErrNilFunc 传入的被追踪函数为 nil
	ErrNilFunc = errors.New("xspan: nil function")
)
