package tracing

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	t.Parallel()

	shutdown, err := Setup(context.Background(), "conference", "test", "  ", nil)
	if err != nil {
		t.Fatalf("expected setup to succeed, got %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("expected no-op shutdown, got %v", err)
	}
}

func TestNewProvider_RecordsSpansWithResource(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := newProvider("conference", "1.2.3", sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	_, span := provider.Tracer("test").Start(context.Background(), "SessionService.CreateSession")
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 || ended[0].Name() != "SessionService.CreateSession" {
		t.Fatalf("expected one recorded span, got %d", len(ended))
	}

	found := false
	for _, attr := range ended[0].Resource().Attributes() {
		if string(attr.Key) == "service.name" && attr.Value.AsString() == "conference" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected service.name resource attribute")
	}
}
