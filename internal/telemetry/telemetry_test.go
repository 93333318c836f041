package telemetry

import (
	"context"
	"testing"

	"github.com/khoslavarun/QuoteBuilder/internal/config"
)

func TestSetup_WithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.OtelConfig{ServiceName: "quotebuilder"})
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}

	_, span := Tracer().Start(context.Background(), "noop")
	defer span.End()
	if span.SpanContext().IsValid() {
		t.Fatalf("expected a no-op span without a configured provider")
	}
}
