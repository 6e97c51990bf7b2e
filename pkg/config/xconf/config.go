package xconf

import "github.com/knadh/koanf/v2"

// Format 配置格式
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config 配置接口，基础读取直接使用 Client() 返回的 koanf 实例
type Config interface {
	Client() *koanf.Koanf

	// Unmarshal 将 path 下的配置反序列化到 target，path 为空时反序列化全部。
	// 字符串形式的 time.Duration（如 "5s"）会被解析。
	Unmarshal(path string, target any) error

	// Reload 重新读取文件，从字节数据创建的 Config 返回 ErrReloadBytes
	Reload() error

	// Path 文件路径，从字节数据创建时为空
	Path() string

	Format() Format
}
