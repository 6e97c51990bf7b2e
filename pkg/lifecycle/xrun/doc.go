// Package xrun 基于 errgroup 管理进程内多个服务的运行与协调关闭。
//
// 任一服务返回错误、收到退出信号或父 context 取消时，其余服务都会收到取消。
//
//	err := xrun.Run(ctx,
//		xrun.HTTPServer(server, 10*time.Second),
//		xrun.OnShutdown(shutdownTracer, 5*time.Second),
//	)
//	if errors.Is(err, xrun.ErrSignal) {
//		// 正常退出
//	}
package xrun
