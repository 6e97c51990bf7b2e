package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bytedance/sonic"
	"github.com/urfave/cli/v3"

	"github.com/omeyang/xtracer/pkg/config/xconf"
	"github.com/omeyang/xtracer/pkg/observability/xlog"
	"github.com/omeyang/xtracer/pkg/trace/xprovider"
	"github.com/omeyang/xtracer/pkg/trace/xtag"
)

// defaultConfig 未提供配置文件时使用
const defaultConfig = `
log:
  level: info
tracer:
  driver: otel
  service:
    name: xtracedemo
  enable:
    http_client: true
    redis: true
    db: true
    method: true
    exception: true
  sampler:
    type: const
    param: 1
  flush_timeout: 5s
`

// keyLogLevel 日志级别配置项，serve 收到 SIGHUP 时重新读取
const keyLogLevel = "log.level"

// embeddedSource 内置默认配置在输出中的来源名
const embeddedSource = "<embedded>"

func loadConfig(cmd *cli.Command) (xconf.Config, xprovider.Config, error) {
	src, err := xconf.Load(cmd.String("config"), []byte(defaultConfig))
	if err != nil {
		return nil, xprovider.Config{}, err
	}
	cfg, err := xprovider.Load(src)
	if err != nil {
		return nil, xprovider.Config{}, err
	}
	return src, cfg, nil
}

func sourceName(src xconf.Config) string {
	if p := src.Path(); p != "" {
		return p
	}
	return embeddedSource
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "打印配置来源、合并后的追踪配置与生效的 tag 表",
		Action: func(_ context.Context, cmd *cli.Command) error {
			src, cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out, err := sonic.ConfigStd.MarshalIndent(map[string]any{
				"source": map[string]string{
					"path":   sourceName(src),
					"format": string(src.Format()),
				},
				"config": cfg,
				"tags":   xtag.New(cfg.Tags).Snapshot(),
			}, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.Root().Writer, string(out))
			return err
		},
	}
}

// reloadOnSignal 每收到一次信号重新读取配置文件，返回 xrun 服务函数
func reloadOnSignal(src xconf.Config, logger xlog.LoggerWithLevel, sig <-chan os.Signal) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-sig:
				applyReload(ctx, src, logger)
			}
		}
	}
}

// applyReload 重新读取配置并应用日志级别。
//
// 追踪配置（tag 表、开关、采样器）构建后只读，变更需重启生效。
func applyReload(ctx context.Context, src xconf.Config, logger xlog.LoggerWithLevel) {
	attrs := []slog.Attr{
		slog.String("path", sourceName(src)),
		slog.String("format", string(src.Format())),
	}
	if err := src.Reload(); err != nil {
		logger.Warn(ctx, "config reload failed", append(attrs, xlog.Err(err))...)
		return
	}
	if s := src.Client().String(keyLogLevel); s != "" {
		level, err := xlog.ParseLevel(s)
		if err != nil {
			logger.Warn(ctx, "config reload: invalid log level", append(attrs, xlog.Err(err))...)
			return
		}
		logger.SetLevel(level)
	}
	logger.Info(ctx, "config reloaded", append(attrs, slog.String("level", logger.GetLevel().String()))...)
}
