package observability

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"

	"github.com/beaconkit/beacon/internal/config"
)

func TestNewTracer_Disabled(t *testing.T) {
	tracer, err := NewTracer(config.DefaultTracingConfig(), "1.0.0", "test")
	if err != nil {
		t.Fatalf("NewTracer() returned error: %v", err)
	}
	if tracer == nil {
		t.Fatal("NewTracer() returned nil")
	}

	// A disabled tracer still hands out usable spans.
	ctx, span := tracer.StartSpan(context.Background(), "health_check")
	if span == nil {
		t.Fatal("StartSpan() returned nil span")
	}
	if ctx == nil {
		t.Fatal("StartSpan() returned nil context")
	}
	span.End()
}

func TestTracer_StartSpan_WithAttributes(t *testing.T) {
	tracer, err := NewTracer(config.DefaultTracingConfig(), "1.0.0", "test")
	if err != nil {
		t.Fatalf("NewTracer() returned error: %v", err)
	}

	_, span := tracer.StartSpan(context.Background(), "measure",
		attribute.String("operation", "render_dashboard"),
		attribute.Int("attempt", 1),
	)
	if span == nil {
		t.Fatal("StartSpan() returned nil span")
	}
	span.End()
}

func TestNewTracer_Enabled(t *testing.T) {
	cfg := config.TracingConfig{
		Enabled:     true,
		ServiceName: "beacon-test",
	}

	tracer, err := NewTracer(cfg, "1.0.0", "test")
	if err != nil {
		t.Fatalf("NewTracer() returned error: %v", err)
	}
	if tracer == nil {
		t.Fatal("NewTracer() returned nil")
	}

	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() returned error: %v", err)
	}
}
