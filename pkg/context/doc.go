// Package context 提供请求级上下文相关的子包。
//
// 子包列表：
//   - xctx: request ID、跳过追踪标志、调用点标识，以及日志追踪属性提取
package context
