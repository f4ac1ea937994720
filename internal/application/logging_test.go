package application

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/example/conference-scheduler/internal/logging"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestServiceLogger_PrefersContextLogger(t *testing.T) {
	t.Parallel()

	var baseBuf, ctxBuf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&baseBuf, nil))
	requestLogger := slog.New(slog.NewTextHandler(&ctxBuf, nil))
	ctx := logging.ContextWithLogger(context.Background(), requestLogger)

	serviceLogger(ctx, base, "SessionService", "CreateSession", "session_id", "s-1").Info("done")

	if baseBuf.Len() != 0 {
		t.Fatalf("expected base logger to stay silent, got %q", baseBuf.String())
	}
	line := ctxBuf.String()
	for _, want := range []string{"service=SessionService", "operation=CreateSession", "session_id=s-1"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}
