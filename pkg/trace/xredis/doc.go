// Package xredis 为 go-redis v9 客户端提供追踪 Hook。
//
// 受 redis 开关控制：关闭时 Hook 直接调用下一环，不创建 span。
// 每条命令一个 client span，操作名为命令名；pipeline/事务合并为一个名为 pipeline 的 span。
// redis.Nil（key 不存在）视为成功，不标注异常。
//
// 用法：
//
//	client := redis.NewClient(&redis.Options{Addr: addr})
//	xredis.Instrument(client, tracing)
package xredis
