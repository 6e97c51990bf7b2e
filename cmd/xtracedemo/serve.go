package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/omeyang/xtracer/pkg/lifecycle/xrun"
	"github.com/omeyang/xtracer/pkg/observability/xlog"
	"github.com/omeyang/xtracer/pkg/trace/xmongo"
	"github.com/omeyang/xtracer/pkg/trace/xprovider"
	"github.com/omeyang/xtracer/pkg/trace/xredis"
	"github.com/omeyang/xtracer/pkg/trace/xresty"
)

const (
	engineMux = "mux"
	engineGin = "gin"

	redisEmbedded = "embedded"

	shutdownTimeout = 10 * time.Second
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "启动演示 HTTP 服务",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "监听地址", Value: ":8080"},
			&cli.StringFlag{Name: "engine", Usage: "HTTP 引擎 mux/gin", Value: engineMux},
			&cli.StringFlag{Name: "redis", Usage: "redis 地址，embedded 表示进程内 miniredis", Value: redisEmbedded},
			&cli.StringFlag{Name: "mongo", Usage: "mongo URI，为空时不访问 mongo"},
			&cli.StringFlag{Name: "upstream", Usage: "上游 HTTP 服务 BaseURL，为空时不调用"},
		},
		Action: serve,
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	src, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cmd, cfg.Service.Name)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	tracing, shutdownTracing, err := xprovider.Build(ctx, cfg, xprovider.WithLogger(logger))
	if err != nil {
		return err
	}

	a := &app{tracing: tracing}

	rdb, closeRedis, err := newRedis(cmd.String("redis"))
	if err != nil {
		return errors.Join(err, shutdownTracing(ctx))
	}
	defer closeRedis()
	xredis.Instrument(rdb, tracing)
	a.redis = rdb

	if uri := cmd.String("mongo"); uri != "" {
		client, err := mongo.Connect(xmongo.Instrument(options.Client().ApplyURI(uri), tracing))
		if err != nil {
			return errors.Join(fmt.Errorf("connect mongo: %w", err), shutdownTracing(ctx))
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		a.mongo = client
	}

	if base := cmd.String("upstream"); base != "" {
		a.upstream = xresty.New(tracing, base)
	}

	var handler http.Handler
	switch engine := cmd.String("engine"); engine {
	case engineMux:
		handler = a.muxHandler()
	case engineGin:
		gin.SetMode(gin.ReleaseMode)
		handler = a.ginEngine()
	default:
		return errors.Join(fmt.Errorf("unknown engine %q", engine), shutdownTracing(ctx))
	}

	server := &http.Server{
		Addr:              cmd.String("addr"),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info(ctx, "xtracedemo listening",
		xlog.Component(cmd.String("engine")),
		xlog.Path(server.Addr),
	)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	// SIGHUP 用于重新加载配置，不触发退出
	runOpts := []xrun.Option{
		xrun.WithLogger(logger),
		xrun.WithSignals(syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT),
	}
	err = xrun.RunWithOptions(ctx, runOpts,
		xrun.HTTPServer(server, shutdownTimeout),
		reloadOnSignal(src, logger, hup),
		xrun.OnShutdown(shutdownTracing, shutdownTimeout),
	)
	if errors.Is(err, xrun.ErrSignal) {
		return nil
	}
	return err
}

// newRedis 创建 redis 客户端，embedded 时启动进程内 miniredis
func newRedis(addr string) (*redis.Client, func(), error) {
	if addr != redisEmbedded {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		return rdb, func() { _ = rdb.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start embedded redis: %w", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), Protocol: 2, DisableIdentity: true})
	return rdb, func() {
		_ = rdb.Close()
		mr.Close()
	}, nil
}
