package xlog_test

import (
	"testing"

	"github.com/omeyang/xtracer/pkg/observability/xlog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  xlog.Level
		err   bool
	}{
		{"debug", xlog.LevelDebug, false},
		{" INFO ", xlog.LevelInfo, false},
		{"warning", xlog.LevelWarn, false},
		{"Error", xlog.LevelError, false},
		{"trace", xlog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := xlog.ParseLevel(tt.input)
			if (err != nil) != tt.err {
				t.Fatalf("ParseLevel(%q) err = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLevel_UnmarshalText(t *testing.T) {
	var l xlog.Level
	if err := l.UnmarshalText([]byte("warn")); err != nil {
		t.Fatal(err)
	}
	if l != xlog.LevelWarn || l.String() != "WARN" {
		t.Errorf("level = %v", l)
	}
	if err := l.UnmarshalText([]byte("loud")); err == nil {
		t.Error("expected error")
	}
}
