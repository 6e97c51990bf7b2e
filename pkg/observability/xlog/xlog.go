package xlog

import (
	"context"
	"log/slog"
)

// Logger 日志接口。方法都要求 context，用于注入追踪信息。
type Logger interface {
	Debug(ctx context.Context, msg string, attrs ...slog.Attr)
	Info(ctx context.Context, msg string, attrs ...slog.Attr)
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)
	Error(ctx context.Context, msg string, attrs ...slog.Attr)

	// With 返回带固定属性的派生 Logger，与父级共享级别
	With(attrs ...slog.Attr) Logger
}

// Leveler 动态级别控制
type Leveler interface {
	SetLevel(level Level)
	GetLevel() Level
	Enabled(ctx context.Context, level Level) bool
}

// LoggerWithLevel Build 的返回类型
type LoggerWithLevel interface {
	Logger
	Leveler
}
