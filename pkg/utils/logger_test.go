package utils

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	t.Run("debug mode enables debug level", func(t *testing.T) {
		logger, err := NewLogger(true)
		if err != nil {
			t.Fatalf("NewLogger(true) error: %v", err)
		}
		if !logger.Core().Enabled(zapcore.DebugLevel) {
			t.Error("debug level should be enabled")
		}
		_ = logger.Sync()
	})

	t.Run("production mode starts at info", func(t *testing.T) {
		logger, err := NewLogger(false)
		if err != nil {
			t.Fatalf("NewLogger(false) error: %v", err)
		}
		if logger.Core().Enabled(zapcore.DebugLevel) {
			t.Error("debug level should be disabled")
		}
		_ = logger.Sync()
	})
}

func TestComponent(t *testing.T) {
	if Component(nil, "x") == nil {
		t.Fatal("nil logger should become a no-op logger")
	}
	logger, _ := NewLogger(false)
	if Component(logger, "pipeline") == logger {
		t.Error("expected a named child logger")
	}
}
