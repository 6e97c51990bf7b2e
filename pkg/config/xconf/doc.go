// Package xconf 基于 koanf 的配置加载。
//
// 支持 YAML（.yaml/.yml）与 JSON（.json），可从文件或字节数据创建。
// 只负责加载与反序列化；默认值与环境变量覆盖由使用方（如 xprovider）处理。
//
//	cfg, err := xconf.New("config.yaml")
//	var tc TracerConfig
//	err = cfg.Unmarshal("tracer", &tc)
//
// [Load] 在配置文件缺失时退回到给定的默认内容，适合命令行工具。
//
// Reload 与 Unmarshal 并发安全；Client 返回的 koanf 实例在 Reload 后仍指向旧配置。
package xconf
