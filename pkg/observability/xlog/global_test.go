package xlog_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/omeyang/xtracer/pkg/observability/xlog"
)

func TestDefault_LazyInit(t *testing.T) {
	xlog.ResetDefault()
	t.Cleanup(xlog.ResetDefault)

	a := xlog.Default()
	if a == nil {
		t.Fatal("Default() returned nil")
	}
	if b := xlog.Default(); a != b {
		t.Error("Default() should return the same instance")
	}
}

func TestSetDefault_GlobalFuncs(t *testing.T) {
	xlog.ResetDefault()
	t.Cleanup(xlog.ResetDefault)

	var buf bytes.Buffer
	xlog.SetDefault(build(t, xlog.New().SetOutput(&buf).SetLevel(xlog.LevelDebug).SetAddSource(true)))
	xlog.SetDefault(nil)

	ctx := context.Background()
	xlog.Debug(ctx, "g-debug")
	xlog.Info(ctx, "g-info")
	xlog.Warn(ctx, "g-warn")
	xlog.Error(ctx, "g-error")

	out := buf.String()
	for _, s := range []string{"g-debug", "g-info", "g-warn", "g-error", "global_test.go"} {
		if !strings.Contains(out, s) {
			t.Errorf("output should contain %q: %s", s, out)
		}
	}
}
