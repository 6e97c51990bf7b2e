package xprovider

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/omeyang/xtracer/pkg/config/xconf"
	"github.com/omeyang/xtracer/pkg/trace/xspan"
	"github.com/omeyang/xtracer/pkg/trace/xtag"
)

// 驱动
const (
	DriverOTel = "otel"
	DriverNoop = "noop"
)

// 采样器类型
const (
	SamplerConst  = "const"
	SamplerRatio  = "ratio"
	SamplerParent = "parent"
)

// Section 配置段名
const Section = "tracer"

// Config 追踪配置
type Config struct {
	Driver       string         `koanf:"driver"`
	Service      ServiceConfig  `koanf:"service"`
	Enable       EnableConfig   `koanf:"enable"`
	Sampler      SamplerConfig  `koanf:"sampler"`
	Reporter     ReporterConfig `koanf:"reporter"`
	FlushTimeout time.Duration  `koanf:"flush_timeout"`

	// Tags 覆盖默认 tag 名，category -> field -> key
	Tags xtag.Tags `koanf:"-"`
}

// ServiceConfig 服务标识，写入 resource 属性
type ServiceConfig struct {
	Name       string `koanf:"name"`
	Namespace  string `koanf:"namespace"`
	Version    string `koanf:"version"`
	InstanceID string `koanf:"instance_id"`
}

// EnableConfig 插桩面开关
type EnableConfig struct {
	HTTPClient bool `koanf:"http_client"`
	Redis      bool `koanf:"redis"`
	DB         bool `koanf:"db"`
	Method     bool `koanf:"method"`
	Exception  bool `koanf:"exception"`
}

// Switches 转换为 xspan.Switches
func (e EnableConfig) Switches() xspan.Switches {
	return xspan.Switches{
		HTTPClient: e.HTTPClient,
		Redis:      e.Redis,
		DB:         e.DB,
		Method:     e.Method,
		Exception:  e.Exception,
	}
}

// SamplerConfig 采样配置。
//
// const: param >= 1 全采，否则不采；ratio: 按 param 比例采样；
// parent: 跟随上游决策，根 span 按 param 比例采样。
type SamplerConfig struct {
	Type  string  `koanf:"type"`
	Param float64 `koanf:"param"`
}

// ReporterConfig 上报配置，Endpoint 为空时不上报
type ReporterConfig struct {
	Endpoint string            `koanf:"endpoint"`
	Timeout  time.Duration     `koanf:"timeout"`
	Headers  map[string]string `koanf:"headers"`
	Attempts uint              `koanf:"attempts"`
}

// Default 返回默认配置
func Default() Config {
	sw := xspan.DefaultSwitches()
	return Config{
		Driver:  DriverOTel,
		Service: ServiceConfig{Name: "skeleton"},
		Enable: EnableConfig{
			HTTPClient: sw.HTTPClient,
			Redis:      sw.Redis,
			DB:         sw.DB,
			Method:     sw.Method,
			Exception:  sw.Exception,
		},
		Sampler:      SamplerConfig{Type: SamplerConst, Param: 1},
		Reporter:     ReporterConfig{Timeout: 5 * time.Second, Attempts: 3},
		FlushTimeout: xspan.DefaultFlushTimeout,
	}
}

// envOverrides 环境变量覆盖，未设置的变量保持 nil
type envOverrides struct {
	Driver           *string  `envconfig:"TRACER_DRIVER"`
	EnableHTTPClient *bool    `envconfig:"TRACER_ENABLE_HTTP_CLIENT"`
	EnableRedis      *bool    `envconfig:"TRACER_ENABLE_REDIS"`
	EnableDB         *bool    `envconfig:"TRACER_ENABLE_DB"`
	EnableMethod     *bool    `envconfig:"TRACER_ENABLE_METHOD"`
	EnableException  *bool    `envconfig:"TRACER_ENABLE_EXCEPTION"`
	AppName          *string  `envconfig:"APP_NAME"`
	ReportEndpoint   *string  `envconfig:"TRACER_REPORT_ENDPOINT"`
	SamplerType      *string  `envconfig:"TRACER_SAMPLER_TYPE"`
	SamplerParam     *float64 `envconfig:"TRACER_SAMPLER_PARAM"`
}

// Load 读取 tracer 段并叠加环境变量。
//
// cfg 为 nil 时只使用默认值与环境变量。
func Load(cfg xconf.Config) (Config, error) {
	c := Default()
	if cfg != nil {
		if err := cfg.Unmarshal(Section, &c); err != nil {
			return Config{}, err
		}
		raw := cfg.Client().Get(Section + ".tags")
		if m, ok := raw.(map[string]any); ok {
			c.Tags = tagOverrides(m)
		}
	}
	if err := c.applyEnv(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("xprovider: env: %w", err)
	}
	setIf(&c.Driver, env.Driver)
	setIf(&c.Enable.HTTPClient, env.EnableHTTPClient)
	setIf(&c.Enable.Redis, env.EnableRedis)
	setIf(&c.Enable.DB, env.EnableDB)
	setIf(&c.Enable.Method, env.EnableMethod)
	setIf(&c.Enable.Exception, env.EnableException)
	setIf(&c.Service.Name, env.AppName)
	setIf(&c.Reporter.Endpoint, env.ReportEndpoint)
	setIf(&c.Sampler.Type, env.SamplerType)
	setIf(&c.Sampler.Param, env.SamplerParam)
	return nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// tagOverrides 将 tags 段转换为覆盖表。
//
// 字段名本身可能含 "."（如 request.header），配置加载时会被拆成嵌套 map，
// 这里把 category 以下的路径重新用 "." 拼回字段名。
func tagOverrides(raw map[string]any) xtag.Tags {
	out := make(xtag.Tags, len(raw))
	for category, v := range raw {
		fields, ok := v.(map[string]any)
		if !ok {
			continue
		}
		flat := make(map[string]string)
		flattenFields(flat, "", fields)
		if len(flat) > 0 {
			out[category] = flat
		}
	}
	return out
}

func flattenFields(dst map[string]string, prefix string, m map[string]any) {
	for k, v := range m {
		field := k
		if prefix != "" {
			field = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flattenFields(dst, field, val)
		case nil:
			dst[field] = ""
		default:
			dst[field] = strings.TrimSpace(fmt.Sprint(val))
		}
	}
}
