package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xtracer/pkg/trace/xoutbound"
	"github.com/omeyang/xtracer/pkg/trace/xprovider"
	"github.com/omeyang/xtracer/pkg/trace/xspan"
)

func callCommand() *cli.Command {
	return &cli.Command{
		Name:      "call",
		Usage:     "发起一次被追踪的出站 GET 请求",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "timeout", Usage: "请求超时", Value: 10 * time.Second},
		},
		Action: call,
	}
}

func call(ctx context.Context, cmd *cli.Command) (err error) {
	target := cmd.Args().First()
	if target == "" {
		return errors.New("missing url")
	}

	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cmd, cfg.Service.Name)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	tracing, shutdown, err := xprovider.Build(ctx, cfg, xprovider.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if serr := shutdown(context.WithoutCancel(ctx)); err == nil {
			err = serr
		}
	}()

	client := xoutbound.New(tracing).Client(&http.Client{Timeout: cmd.Duration("timeout")})

	// 本地根 span，出站 span 作为它的子 span
	ctx, root := tracing.StartSpan(ctx, "xtracedemo.call", xspan.KindInternal, nil)
	defer root.Finish()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		tracing.RecordError(root, err)
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.Root().Writer, "%d %s\ntrace_id=%s\n%s\n",
		resp.StatusCode, http.StatusText(resp.StatusCode), root.SpanContext().TraceID(), body)
	return err
}
