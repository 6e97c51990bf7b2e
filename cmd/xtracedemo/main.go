// xtracedemo 演示请求追踪在各插桩面上的接入。
//
// 用法:
//
//	xtracedemo [全局选项] <命令>
//
// 命令:
//
//	serve    启动演示 HTTP 服务（ServeMux 或 gin），接入 redis、mongo、上游 HTTP
//	call     发起一次被追踪的出站 GET 请求
//	config   打印合并后的追踪配置
//
// 示例:
//
//	xtracedemo serve --addr :8080 --redis embedded
//	TRACER_REPORT_ENDPOINT=http://localhost:9411/api/v2/spans xtracedemo serve --engine gin
//	xtracedemo call http://localhost:8080/users/1
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xtracer/pkg/observability/xlog"
)

// Version 可通过 -ldflags "-X main.Version=..." 注入
var Version = "0.1.0-dev"

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "xtracedemo",
		Usage:   "请求追踪演示",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径（YAML/JSON），不存在时使用内置默认配置",
				Sources: cli.EnvVars("XTRACEDEMO_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "日志级别 debug/info/warn/error",
				Value: "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "日志格式 text/json",
				Value: "text",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			callCommand(),
			configCommand(),
		},
	}
}

func newLogger(cmd *cli.Command, service string) (xlog.LoggerWithLevel, func() error, error) {
	logger, cleanup, err := xlog.New().
		SetLevelString(cmd.String("log-level")).
		SetFormat(cmd.String("log-format")).
		SetService(service).
		Build()
	if err != nil {
		return nil, nil, err
	}
	xlog.SetDefault(logger)
	return logger, cleanup, nil
}
