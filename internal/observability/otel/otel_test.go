package otel

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled is always valid", Config{SampleRatio: -1}, false},
		{"defaults enabled", func() Config { c := DefaultConfig(); c.Enabled = true; return c }(), false},
		{"missing service name", Config{Enabled: true, SampleRatio: 1}, true},
		{"sample ratio below 0", Config{Enabled: true, ServiceName: "niter", SampleRatio: -0.1}, true},
		{"sample ratio above 1", Config{Enabled: true, ServiceName: "niter", SampleRatio: 1.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInitDisabledIsNoop(t *testing.T) {
	h, err := Init(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	_, span := h.Tracer.Start(context.Background(), "niter.test")
	if span.SpanContext().IsValid() {
		t.Error("disabled tracing should produce invalid span contexts")
	}
	span.End()
	if err := h.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestSpanRecorded(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	h := InitWithProvider(tp)
	ctx, span := h.Tracer.Start(context.Background(), "niter.build",
		trace.WithAttributes(attribute.String("niter.output", "server")),
	)
	span.SetStatus(codes.Error, "sync failed")
	span.End()
	_ = tp.ForceFlush(ctx)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "niter.build" {
		t.Errorf("span name = %q", s.Name())
	}
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", s.Status().Code)
	}
	var found bool
	for _, attr := range s.Attributes() {
		if attr.Key == "niter.output" && attr.Value.AsString() == "server" {
			found = true
		}
	}
	if !found {
		t.Error("missing attribute niter.output")
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
	}
	for _, tt := range tests {
		if got := sampler(tt.ratio).Description(); got != tt.want {
			t.Errorf("sampler(%v) = %q, want %q", tt.ratio, got, tt.want)
		}
	}
}

func TestExporterOptions(t *testing.T) {
	if got := len(exporterOptions("collector:4318", false)); got != 1 {
		t.Errorf("host:port options = %d, want 1", got)
	}
	if got := len(exporterOptions("http://collector:4318", false)); got != 2 {
		t.Errorf("http URL options = %d, want 2 (insecure implied)", got)
	}
	if got := len(exporterOptions("https://collector:4318", true)); got != 2 {
		t.Errorf("insecure https options = %d, want 2", got)
	}
}
