package xtag

import "fmt"

// 标签分类。
const (
	CategoryDB        = "db"
	CategoryRequest   = "request"
	CategoryException = "exception"
	CategoryHTTP      = "http"
	CategoryNet       = "net"
	CategoryRedis     = "redis"
	CategoryService   = "service"
)

// 各分类下的字段名。
const (
	FieldDBQuery     = "db.query"
	FieldDBStatement = "db.statement"
	FieldDBQueryTime = "db.query_time"

	FieldRequestID = "id"

	FieldExceptionClass      = "class"
	FieldExceptionCode       = "code"
	FieldExceptionMessage    = "message"
	FieldExceptionStackTrace = "stack_trace"

	FieldHTTPURL            = "url"
	FieldHTTPHost           = "host"
	FieldHTTPMethod         = "method"
	FieldHTTPTarget         = "target"
	FieldHTTPRoute          = "route"
	FieldHTTPScheme         = "scheme"
	FieldHTTPServerName     = "server_name"
	FieldHTTPStatusCode     = "status_code"
	FieldHTTPRequestHeader  = "request.header"
	FieldHTTPResponseHeader = "response.header"

	FieldNetHostPort = "host.port"

	FieldRedisArguments = "arguments"
	FieldRedisResult    = "result"

	FieldServiceName       = "name"
	FieldServiceNamespace  = "namespace"
	FieldServiceInstanceID = "instance.id"
	FieldServiceVersion    = "version"
)

// Tags 是 category -> field -> tag key 的两级映射。
// 同时作为覆盖配置的结构（koanf/yaml 可直接反序列化到该类型）。
type Tags map[string]map[string]string

// Defaults 返回内置默认标签的副本。
func Defaults() Tags {
	return Tags{
		CategoryDB: {
			FieldDBQuery:     "db.query",
			FieldDBStatement: "db.statement",
			FieldDBQueryTime: "db.query_time",
		},
		CategoryRequest: {
			FieldRequestID: "request.id",
		},
		CategoryException: {
			FieldExceptionClass:      "exception.class",
			FieldExceptionCode:       "exception.code",
			FieldExceptionMessage:    "exception.message",
			FieldExceptionStackTrace: "exception.stack_trace",
		},
		CategoryHTTP: {
			FieldHTTPURL:            "http.url",
			FieldHTTPHost:           "http.host",
			FieldHTTPMethod:         "http.method",
			FieldHTTPTarget:         "http.target",
			FieldHTTPRoute:          "http.route",
			FieldHTTPScheme:         "http.scheme",
			FieldHTTPServerName:     "http.server_name",
			FieldHTTPStatusCode:     "http.status_code",
			FieldHTTPRequestHeader:  "http.request.header",
			FieldHTTPResponseHeader: "http.response.header",
		},
		CategoryNet: {
			FieldNetHostPort: "net.host.port",
		},
		CategoryRedis: {
			FieldRedisArguments: "arguments",
			FieldRedisResult:    "result",
		},
		CategoryService: {
			FieldServiceName:       "service.name",
			FieldServiceNamespace:  "service.namespace",
			FieldServiceInstanceID: "service.instance.id",
			FieldServiceVersion:    "service.version",
		},
	}
}

// Registry 标签注册表。
type Registry struct {
	tags Tags
}

// New 创建带内置默认值的注册表，并依次合并 overrides。
func New(overrides ...Tags) *Registry {
	r := &Registry{tags: Defaults()}
	for _, o := range overrides {
		r.Apply(o)
	}
	return r
}

// Apply 将 overrides 递归合并到当前标签。
//
// 逐分类、逐字段合并：overrides 中不存在的分类或字段保持原值，
// 两边都存在的叶子以 overrides 为准。nil 或空映射为 no-op。
// overrides 中的新分类/新字段会被加入。
func (r *Registry) Apply(overrides Tags) {
	for category, fields := range overrides {
		current, ok := r.tags[category]
		if !ok {
			current = make(map[string]string, len(fields))
			r.tags[category] = current
		}
		for field, key := range fields {
			current[field] = key
		}
	}
}

// Get 返回 (category, field) 对应的标签名，不存在时返回 ErrTagNotFound。
func (r *Registry) Get(category, field string) (string, error) {
	if key, ok := r.lookup(category, field); ok {
		return key, nil
	}
	return "", fmt.Errorf("%w: %s/%s", ErrTagNotFound, category, field)
}

// Has 判断 (category, field) 是否已注册。
func (r *Registry) Has(category, field string) bool {
	_, ok := r.lookup(category, field)
	return ok
}

// Key 返回 (category, field) 对应的标签名，不存在时返回空字符串。
//
// 空字符串同时也是"禁用该标签"的约定，调用方统一跳过空 key 即可。
func (r *Registry) Key(category, field string) string {
	key, _ := r.lookup(category, field)
	return key
}

// Snapshot 返回当前标签的深拷贝。
func (r *Registry) Snapshot() Tags {
	out := make(Tags, len(r.tags))
	for category, fields := range r.tags {
		copied := make(map[string]string, len(fields))
		for field, key := range fields {
			copied[field] = key
		}
		out[category] = copied
	}
	return out
}

func (r *Registry) lookup(category, field string) (string, bool) {
	if r == nil {
		return "", false
	}
	fields, ok := r.tags[category]
	if !ok {
		return "", false
	}
	key, ok := fields[field]
	return key, ok
}
