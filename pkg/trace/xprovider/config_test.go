package xprovider_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtracer/pkg/config/xconf"
	"github.com/omeyang/xtracer/pkg/trace/xprovider"
	"github.com/omeyang/xtracer/pkg/trace/xspan"
)

const sampleYAML = `
tracer:
  driver: otel
  service:
    name: orders
    namespace: shop
    version: 1.2.3
  enable:
    redis: false
    method: true
  sampler:
    type: ratio
    param: 0.25
  reporter:
    endpoint: http://collector:9411/api/v2/spans
    timeout: 2s
    attempts: 5
    headers:
      Authorization: Bearer token
  flush_timeout: 3s
  tags:
    http:
      status_code: http.response.status_code
      request.header: http.req
      scheme: ""
    custom:
      field: custom.field
`

func loadYAML(t *testing.T, data string) xprovider.Config {
	t.Helper()
	cfg, err := xconf.NewFromBytes([]byte(data), xconf.FormatYAML)
	require.NoError(t, err)
	c, err := xprovider.Load(cfg)
	require.NoError(t, err)
	return c
}

func TestLoad_Defaults(t *testing.T) {
	c, err := xprovider.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, xprovider.DriverOTel, c.Driver)
	assert.Equal(t, "skeleton", c.Service.Name)
	assert.Equal(t, xspan.DefaultSwitches(), c.Enable.Switches())
	assert.Equal(t, xprovider.SamplerConfig{Type: xprovider.SamplerConst, Param: 1}, c.Sampler)
	assert.Equal(t, xspan.DefaultFlushTimeout, c.FlushTimeout)
	assert.Empty(t, c.Reporter.Endpoint)
	assert.Empty(t, c.Tags)
}

func TestLoad_FromYAML(t *testing.T) {
	c := loadYAML(t, sampleYAML)

	assert.Equal(t, "orders", c.Service.Name)
	assert.Equal(t, "shop", c.Service.Namespace)
	assert.Equal(t, "1.2.3", c.Service.Version)

	t.Run("开关未配置项保持默认", func(t *testing.T) {
		assert.Equal(t, xspan.Switches{
			HTTPClient: true,
			Redis:      false,
			DB:         true,
			Method:     true,
			Exception:  true,
		}, c.Enable.Switches())
	})

	t.Run("采样与上报", func(t *testing.T) {
		assert.Equal(t, xprovider.SamplerConfig{Type: xprovider.SamplerRatio, Param: 0.25}, c.Sampler)
		assert.Equal(t, "http://collector:9411/api/v2/spans", c.Reporter.Endpoint)
		assert.Equal(t, 2*time.Second, c.Reporter.Timeout)
		assert.EqualValues(t, 5, c.Reporter.Attempts)
		assert.Equal(t, 3*time.Second, c.FlushTimeout)
	})

	t.Run("tag 字段名中的点被还原", func(t *testing.T) {
		assert.Equal(t, "http.response.status_code", c.Tags["http"]["status_code"])
		assert.Equal(t, "http.req", c.Tags["http"]["request.header"])
		assert.Equal(t, "", c.Tags["http"]["scheme"])
		assert.Equal(t, "custom.field", c.Tags["custom"]["field"])
	})
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TRACER_DRIVER", "noop")
	t.Setenv("TRACER_ENABLE_HTTP_CLIENT", "false")
	t.Setenv("TRACER_ENABLE_EXCEPTION", "false")
	t.Setenv("APP_NAME", "from-env")
	t.Setenv("TRACER_REPORT_ENDPOINT", "http://env:9411/api/v2/spans")
	t.Setenv("TRACER_SAMPLER_TYPE", "parent")
	t.Setenv("TRACER_SAMPLER_PARAM", "0.5")

	c := loadYAML(t, sampleYAML)

	assert.Equal(t, xprovider.DriverNoop, c.Driver)
	assert.False(t, c.Enable.HTTPClient)
	assert.False(t, c.Enable.Exception)
	// 未设置的环境变量保留文件值
	assert.False(t, c.Enable.Redis)
	assert.True(t, c.Enable.Method)
	assert.Equal(t, "from-env", c.Service.Name)
	assert.Equal(t, "shop", c.Service.Namespace)
	assert.Equal(t, "http://env:9411/api/v2/spans", c.Reporter.Endpoint)
	assert.Equal(t, xprovider.SamplerConfig{Type: xprovider.SamplerParent, Param: 0.5}, c.Sampler)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("TRACER_ENABLE_REDIS", "maybe")
	_, err := xprovider.Load(nil)
	assert.Error(t, err)
}

func TestLoad_InvalidSection(t *testing.T) {
	cfg, err := xconf.NewFromBytes([]byte("tracer:\n  flush_timeout: soon\n"), xconf.FormatYAML)
	require.NoError(t, err)
	_, err = xprovider.Load(cfg)
	assert.ErrorIs(t, err, xconf.ErrUnmarshalFailed)
}
