package cachingpolicy

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestSetLoggerOverridesDefault(t *testing.T) {
	var buf bytes.Buffer
	custom := slog.New(slog.NewTextHandler(&buf, nil))

	original := logger
	t.Cleanup(func() { logger = original })

	SetLogger(custom)
	GetLogger().Warn("test message", "key", "value")

	if !strings.Contains(buf.String(), "test message") {
		t.Fatalf("expected custom logger to receive the message, got %q", buf.String())
	}
}

func TestGetLoggerFallsBackToDefault(t *testing.T) {
	original := logger
	originalOnce := loggerOnce
	t.Cleanup(func() {
		logger = original
		loggerOnce = originalOnce
	})

	logger = nil
	loggerOnce = sync.Once{}

	l := GetLogger()
	if l == nil {
		t.Fatal("expected a non-nil default logger")
	}
}
