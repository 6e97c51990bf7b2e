package xreport

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// DefaultServiceKey resource 中服务名的默认属性名
const DefaultServiceKey = attribute.Key("service.name")

const (
	tagStatusCode = "otel.status_code"
	tagError      = "error"
)

type endpoint struct {
	ServiceName string `json:"serviceName,omitempty"`
}

// zipkinSpan Zipkin v2 span 模型
type zipkinSpan struct {
	TraceID       string            `json:"traceId"`
	ID            string            `json:"id"`
	ParentID      string            `json:"parentId,omitempty"`
	Name          string            `json:"name"`
	Kind          string            `json:"kind,omitempty"`
	Timestamp     int64             `json:"timestamp"`
	Duration      int64             `json:"duration"`
	LocalEndpoint *endpoint         `json:"localEndpoint,omitempty"`
	Tags          map[string]string `json:"tags,omitempty"`
}

func toZipkin(spans []sdktrace.ReadOnlySpan, serviceName string, serviceKey attribute.Key) []zipkinSpan {
	out := make([]zipkinSpan, 0, len(spans))
	for _, s := range spans {
		out = append(out, convert(s, serviceName, serviceKey))
	}
	return out
}

func convert(s sdktrace.ReadOnlySpan, serviceName string, serviceKey attribute.Key) zipkinSpan {
	sc := s.SpanContext()
	zs := zipkinSpan{
		TraceID:   sc.TraceID().String(),
		ID:        sc.SpanID().String(),
		Name:      s.Name(),
		Kind:      zipkinKind(s.SpanKind()),
		Timestamp: s.StartTime().UnixMicro(),
		Duration:  max(s.EndTime().Sub(s.StartTime()).Microseconds(), 1),
	}
	if parent := s.Parent(); parent.IsValid() {
		zs.ParentID = parent.SpanID().String()
	}

	if serviceName == "" {
		serviceName = resourceServiceName(s, serviceKey)
	}
	if serviceName != "" {
		zs.LocalEndpoint = &endpoint{ServiceName: serviceName}
	}

	attrs := s.Attributes()
	tags := make(map[string]string, len(attrs)+2)
	for _, kv := range attrs {
		tags[string(kv.Key)] = kv.Value.Emit()
	}
	switch status := s.Status(); status.Code {
	case codes.Ok:
		if _, ok := tags[tagStatusCode]; !ok {
			tags[tagStatusCode] = "OK"
		}
	case codes.Error:
		tags[tagStatusCode] = "ERROR"
		tags[tagError] = status.Description
	}
	if len(tags) > 0 {
		zs.Tags = tags
	}
	return zs
}

func resourceServiceName(s sdktrace.ReadOnlySpan, key attribute.Key) string {
	res := s.Resource()
	if res == nil {
		return ""
	}
	if v, ok := res.Set().Value(key); ok {
		return v.Emit()
	}
	return ""
}

func zipkinKind(kind trace.SpanKind) string {
	switch kind {
	case trace.SpanKindServer:
		return "SERVER"
	case trace.SpanKindClient:
		return "CLIENT"
	case trace.SpanKindProducer:
		return "PRODUCER"
	case trace.SpanKindConsumer:
		return "CONSUMER"
	default:
		return ""
	}
}
