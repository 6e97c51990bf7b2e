package xspan

// 固定分类标签。其余标签名统一来自 xtag.Registry。
const (
	TagCategory       = "category"
	TagComponent      = "component"
	TagKind           = "kind"
	TagSource         = "source"
	TagOTelStatusCode = "otel.status_code"
)

// StatusOK 成功时 otel.status_code 的取值
const StatusOK = "OK"

// category 标签取值
const (
	CategoryHTTP   = "http"
	CategoryRedis  = "redis"
	CategoryDB     = "db"
	CategoryMethod = "method"
)
