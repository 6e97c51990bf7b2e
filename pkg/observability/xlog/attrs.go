package xlog

import (
	"log/slog"
	"time"
)

// 常用字段名
const (
	KeyError      = "error"
	KeyDuration   = "duration"
	KeyCount      = "count"
	KeyComponent  = "component"
	KeyOperation  = "operation"
	KeyStatusCode = "status_code"
	KeyMethod     = "method"
	KeyPath       = "path"
)

// Err 错误属性，err 为 nil 时返回空属性（slog 会忽略）
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 耗时属性，输出如 "1.5s"
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

func Count(n int64) slog.Attr {
	return slog.Int64(KeyCount, n)
}

func StatusCode(code int) slog.Attr {
	return slog.Int(KeyStatusCode, code)
}

func Method(m string) slog.Attr {
	return slog.String(KeyMethod, m)
}

func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}
