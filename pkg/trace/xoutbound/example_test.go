package xoutbound_test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/omeyang/xtracer/internal/spantest"
	"github.com/omeyang/xtracer/pkg/trace/xoutbound"
	"github.com/omeyang/xtracer/pkg/trace/xspan"
)

func ExampleDo() {
	tracer := spantest.New()
	tr := xspan.New(tracer)
	defer func() { _ = tr.Close(context.Background()) }()

	in := xoutbound.New(tr, xoutbound.WithComponent("example"))
	call := xoutbound.Call{Method: http.MethodGet, URL: "http://inventory.svc/items/7"}

	// invoke 可以是任意客户端库的调用，这里直接返回结果
	n, err := xoutbound.Do(context.Background(), in, call, func(_ context.Context, h http.Header) (int, error) {
		fmt.Println("traceparent:", h.Get("Traceparent") != "")
		return 7, nil
	})
	fmt.Println(n, err)

	span := tracer.Spans()[0]
	fmt.Println(span.Name, span.Kind == xspan.KindClient)
	fmt.Println(span.Tags()["component"])
	// Output:
	// traceparent: true
	// 7 <nil>
	// inventory.svc true
	// example
}
