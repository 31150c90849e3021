package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestNewTracerProviderEmitsSpansToWriter(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewTracerProvider(context.Background(), "mcp-runtime-test", &buf)
	if err != nil {
		t.Fatalf("NewTracerProvider: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	}()

	tracer := tp.Tracer("test")
	_, end := StartSpan(context.Background(), tracer, "test-span")
	end()

	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush: %v", err)
	}

	if !strings.Contains(buf.String(), "test-span") {
		t.Errorf("expected exported span output to contain the span name, got: %s", buf.String())
	}
}

func TestStartSpanReturnsChildContext(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewTracerProvider(context.Background(), "mcp-runtime-test", &buf)
	if err != nil {
		t.Fatalf("NewTracerProvider: %v", err)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := tp.Tracer("test")
	parentCtx := context.Background()
	childCtx, end := StartSpan(parentCtx, tracer, "child")
	defer end()

	if childCtx == parentCtx {
		t.Error("expected StartSpan to return a distinct context carrying the span")
	}
}
