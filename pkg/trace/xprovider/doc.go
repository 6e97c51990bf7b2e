// Package xprovider 从配置组装追踪运行时。
//
// 配置来自 xconf 的 tracer 段，环境变量可覆盖关键项：
//
//	tracer:
//	  driver: otel            # otel | noop
//	  service:
//	    name: orders
//	  enable:
//	    http_client: true
//	    redis: true
//	    db: true
//	    method: false
//	    exception: true
//	  sampler:
//	    type: const           # const | ratio | parent
//	    param: 1
//	  reporter:
//	    endpoint: http://zipkin:9411/api/v2/spans
//	    timeout: 5s
//	    attempts: 3
//	  flush_timeout: 5s
//	  tags:
//	    http:
//	      status_code: http.response.status_code
//
// [Build] 按配置创建 Tag 注册表、Tracer 与 [xspan.Tracing]，
// 并返回关闭函数（刷新并关闭 TracerProvider）。
package xprovider
