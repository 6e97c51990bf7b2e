package xoutbound

import (
	"context"
	"runtime"
	"strings"

	"github.com/omeyang/xtracer/pkg/context/xctx"
)

// 探测调用点时跳过的帧
var skipFramePrefixes = []string{
	"runtime.",
	"net/http.",
	"github.com/go-resty/resty/",
	"github.com/omeyang/xtracer/pkg/trace/xoutbound.",
	"github.com/omeyang/xtracer/pkg/trace/xresty.",
	"github.com/omeyang/xtracer/pkg/trace/xspan.",
}

const maxCallerDepth = 48

// callSite 返回出站调用的发起位置。
//
// 优先取 xctx.WithSource 显式设置的值，否则取调用栈上第一个不属于
// net/http、resty 或本库的函数，格式为 "pkg.Func"。
func callSite(ctx context.Context) string {
	if s := xctx.Source(ctx); s != "" {
		return s
	}

	var pcs [maxCallerDepth]uintptr
	n := runtime.Callers(2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !skipFrame(frame.Function) {
			return shortFuncName(frame.Function)
		}
		if !more {
			return ""
		}
	}
}

func skipFrame(fn string) bool {
	for _, prefix := range skipFramePrefixes {
		if strings.HasPrefix(fn, prefix) {
			return true
		}
	}
	return false
}

// shortFuncName "github.com/acme/billing.(*Client).Charge" → "billing.(*Client).Charge"
func shortFuncName(fn string) string {
	if idx := strings.LastIndexByte(fn, '/'); idx >= 0 {
		return fn[idx+1:]
	}
	return fn
}
