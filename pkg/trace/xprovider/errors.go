package xprovider

import "errors"

var (
	// ErrUnknownDriver 未知的 tracer 驱动
	ErrUnknownDriver = errors.New("xprovider: unknown driver")
	// ErrUnknownSampler 未知的采样器类型
	ErrUnknownSampler = errors.New("xprovider: unknown sampler")
)
