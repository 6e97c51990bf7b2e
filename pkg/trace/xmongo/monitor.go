// Package xmongo 为 mongo-driver v2 提供追踪 CommandMonitor。
//
// 受 db 开关控制。每条命令一个 client span，操作名为 "<db>.<command>"；
// span 在 Started 时以操作 ctx 中的活跃 span 为父创建，在 Succeeded/Failed 时结束。
//
// 用法：
//
//	opts := options.Client().ApplyURI(uri)
//	xmongo.Instrument(opts, tracing)
//	client, err := mongo.Connect(opts)
package xmongo

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/v2/event"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/omeyang/xtracer/pkg/trace/xspan"
	"github.com/omeyang/xtracer/pkg/trace/xtag"
)

const (
	// Component mongo-driver 的 component 标签
	Component = "mongo-driver"

	// maxStatementLen db.statement 标签的最大长度
	maxStatementLen = 4 << 10
)

type spanKey struct {
	connectionID string
	requestID    int64
}

type monitor struct {
	tracing *xspan.Tracing
	next    *event.CommandMonitor
	spans   sync.Map // spanKey -> xspan.Span
}

// NewMonitor 创建追踪 CommandMonitor，事件随后转发给 next（可为 nil）。
// tracing 为 nil 时使用空实现。
func NewMonitor(tracing *xspan.Tracing, next *event.CommandMonitor) *event.CommandMonitor {
	if tracing == nil {
		tracing = xspan.New(nil)
	}
	m := &monitor{tracing: tracing, next: next}
	return &event.CommandMonitor{
		Started:   m.started,
		Succeeded: m.succeeded,
		Failed:    m.failed,
	}
}

// Instrument 在客户端选项上安装追踪 CommandMonitor，保留已有的 Monitor
func Instrument(opts *options.ClientOptions, tracing *xspan.Tracing) *options.ClientOptions {
	if opts == nil {
		opts = options.Client()
	}
	return opts.SetMonitor(NewMonitor(tracing, opts.Monitor))
}

func (m *monitor) started(ctx context.Context, evt *event.CommandStartedEvent) {
	if m.next != nil && m.next.Started != nil {
		m.next.Started(ctx, evt)
	}
	if evt == nil || !m.tracing.Enabled(xspan.SurfaceDB) {
		return
	}

	tags := map[string]any{
		xspan.TagCategory:  xspan.CategoryDB,
		xspan.TagComponent: Component,
		xspan.TagKind:      xspan.KindClient.String(),
	}
	if key := m.tracing.TagKey(xtag.CategoryDB, xtag.FieldDBQuery); key != "" {
		tags[key] = evt.CommandName
	}
	if key := m.tracing.TagKey(xtag.CategoryDB, xtag.FieldDBStatement); key != "" {
		tags[key] = truncate(evt.Command.String())
	}

	_, span := m.tracing.StartSpan(ctx, evt.DatabaseName+"."+evt.CommandName, xspan.KindClient, tags)
	m.spans.Store(spanKey{connectionID: evt.ConnectionID, requestID: evt.RequestID}, span)
}

func (m *monitor) succeeded(ctx context.Context, evt *event.CommandSucceededEvent) {
	if m.next != nil && m.next.Succeeded != nil {
		m.next.Succeeded(ctx, evt)
	}
	if evt == nil {
		return
	}
	span, ok := m.take(evt.ConnectionID, evt.RequestID)
	if !ok {
		return
	}
	defer span.Finish()

	m.tracing.Tag(span, xtag.CategoryDB, xtag.FieldDBQueryTime, evt.Duration.Milliseconds())
	span.SetTag(xspan.TagOTelStatusCode, xspan.StatusOK)
}

func (m *monitor) failed(ctx context.Context, evt *event.CommandFailedEvent) {
	if m.next != nil && m.next.Failed != nil {
		m.next.Failed(ctx, evt)
	}
	if evt == nil {
		return
	}
	span, ok := m.take(evt.ConnectionID, evt.RequestID)
	if !ok {
		return
	}
	defer span.Finish()

	m.tracing.Tag(span, xtag.CategoryDB, xtag.FieldDBQueryTime, evt.Duration.Milliseconds())
	m.tracing.RecordError(span, failureError(evt.Failure))
}

func (m *monitor) take(connectionID string, requestID int64) (xspan.Span, bool) {
	v, ok := m.spans.LoadAndDelete(spanKey{connectionID: connectionID, requestID: requestID})
	if !ok {
		return nil, false
	}
	span, ok := v.(xspan.Span)
	return span, ok
}

// CommandError 以字符串形式上报的命令失败
type CommandError struct {
	Message string
}

func (e *CommandError) Error() string { return e.Message }

// failureError 兼容 Failure 为 error 或 string 的驱动版本
func failureError(failure any) error {
	switch f := failure.(type) {
	case error:
		return f
	case string:
		return &CommandError{Message: f}
	case nil:
		return &CommandError{Message: "command failed"}
	default:
		return &CommandError{Message: fmt.Sprint(f)}
	}
}

func truncate(s string) string {
	if len(s) <= maxStatementLen {
		return s
	}
	cut := maxStatementLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
