package xredis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xtracer/pkg/trace/xspan"
	"github.com/omeyang/xtracer/pkg/trace/xtag"
)

const (
	// Component go-redis 的 component 标签
	Component = "go-redis"

	// PipelineOperation pipeline span 的操作名
	PipelineOperation = "pipeline"

	// maxValueLen arguments/result 标签的最大长度
	maxValueLen = 1024
)

// Hook go-redis 追踪 Hook
type Hook struct {
	tracing *xspan.Tracing
}

var _ redis.Hook = (*Hook)(nil)

// NewHook 创建 Hook。tracing 为 nil 时使用空实现。
func NewHook(tracing *xspan.Tracing) *Hook {
	if tracing == nil {
		tracing = xspan.New(nil)
	}
	return &Hook{tracing: tracing}
}

// Instrument 为 client 安装追踪 Hook
func Instrument(client redis.UniversalClient, tracing *xspan.Tracing) {
	if client == nil {
		return
	}
	client.AddHook(NewHook(tracing))
}

// DialHook 不追踪建连
func (h *Hook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

// ProcessHook 为单条命令创建 span
func (h *Hook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if !h.tracing.Enabled(xspan.SurfaceRedis) {
			return next(ctx, cmd)
		}

		ctx, span := h.tracing.StartSpan(ctx, cmd.FullName(), xspan.KindClient, h.startTags(argsString(cmd)))
		defer span.Finish()

		err := next(ctx, cmd)
		h.finish(span, err, cmd)
		return err
	}
}

// ProcessPipelineHook 为 pipeline/事务创建一个 span
func (h *Hook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		if !h.tracing.Enabled(xspan.SurfaceRedis) {
			return next(ctx, cmds)
		}

		names := make([]string, 0, len(cmds))
		for _, cmd := range cmds {
			names = append(names, cmd.FullName())
		}
		ctx, span := h.tracing.StartSpan(ctx, PipelineOperation, xspan.KindClient, h.startTags(strings.Join(names, " ")))
		defer span.Finish()

		err := next(ctx, cmds)
		if err == nil {
			err = firstCmdError(cmds)
		}
		h.finish(span, err, nil)
		return err
	}
}

func (h *Hook) startTags(args string) map[string]any {
	tags := map[string]any{
		xspan.TagCategory:  xspan.CategoryRedis,
		xspan.TagComponent: Component,
		xspan.TagKind:      xspan.KindClient.String(),
	}
	if key := h.tracing.TagKey(xtag.CategoryRedis, xtag.FieldRedisArguments); key != "" {
		tags[key] = truncate(args)
	}
	return tags
}

func (h *Hook) finish(span xspan.Span, err error, cmd redis.Cmder) {
	if err != nil && !errors.Is(err, redis.Nil) {
		h.tracing.RecordError(span, err)
		return
	}
	if cmd != nil {
		h.tracing.Tag(span, xtag.CategoryRedis, xtag.FieldRedisResult, truncate(resultString(cmd)))
	}
	span.SetTag(xspan.TagOTelStatusCode, xspan.StatusOK)
}

func firstCmdError(cmds []redis.Cmder) error {
	for _, cmd := range cmds {
		if err := cmd.Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
	}
	return nil
}

func argsString(cmd redis.Cmder) string {
	args := cmd.Args()
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, fmt.Sprint(arg))
	}
	return strings.Join(parts, " ")
}

// resultString 从 cmd.String()（"<args>: <value>"）中取出结果部分
func resultString(cmd redis.Cmder) string {
	s := cmd.String()
	prefix := argsString(cmd) + ": "
	if strings.HasPrefix(s, prefix) {
		return s[len(prefix):]
	}
	return s
}

func truncate(s string) string {
	if len(s) <= maxValueLen {
		return s
	}
	cut := maxValueLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
