package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	for _, tt := range []struct {
		json  bool
		debug bool
	}{
		{false, false},
		{true, true},
	} {
		log, err := New(tt.json, tt.debug)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := log.Core().Enabled(zapcore.DebugLevel); got != tt.debug {
			t.Fatalf("debug=%v: expected debug enabled %v, got %v", tt.debug, tt.debug, got)
		}
	}
}
