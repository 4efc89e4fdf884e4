package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingReporter(t *testing.T) (*Reporter, *tracetest.SpanRecorder) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	logger := zerolog.Nop()
	return NewReporterWithTracer(tp.Tracer("test"), &logger), recorder
}

func TestReportRecordsErrorSpan(t *testing.T) {
	r, recorder := newRecordingReporter(t)

	r.Report(context.Background(), errors.New("ability blew up"), "g1", map[string]any{"messages": []string{"hi"}})

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "engine.fault" {
		t.Fatalf("unexpected span name %q", span.Name())
	}
	if span.Status().Code != codes.Error {
		t.Fatalf("expected error status, got %v", span.Status())
	}

	var gameID, extra string
	for _, kv := range span.Attributes() {
		switch kv.Key {
		case "game.id":
			gameID = kv.Value.AsString()
		case "fault.extra":
			extra = kv.Value.AsString()
		}
	}
	if gameID != "g1" {
		t.Fatalf("unexpected game id %q", gameID)
	}
	if !strings.Contains(extra, `"messages"`) {
		t.Fatalf("payload not attached: %q", extra)
	}
	if len(span.Events()) == 0 || span.Events()[0].Name != "exception" {
		t.Fatalf("expected exception event, got %+v", span.Events())
	}
}

func TestReportWithoutExtra(t *testing.T) {
	r, recorder := newRecordingReporter(t)

	r.Report(context.Background(), errors.New("x"), "g2", nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "fault.extra" {
			t.Fatalf("no payload expected")
		}
	}
}

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), "", "gamenode", "test")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestReportTruncatesOnRuneBoundary(t *testing.T) {
	r, recorder := newRecordingReporter(t)

	// `{"ss":"` is 7 bytes, so a plain byte cut would land inside a rune.
	extra := map[string]any{"ss": strings.Repeat("é", maxExtraBytes)}
	r.Report(context.Background(), errors.New("x"), "g3", extra)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}

	var payload string
	var truncated bool
	for _, kv := range spans[0].Attributes() {
		switch kv.Key {
		case "fault.extra":
			payload = kv.Value.AsString()
		case "fault.extra_truncated":
			truncated = kv.Value.AsBool()
		}
	}
	if !truncated {
		t.Fatal("expected payload to be truncated")
	}
	if len(payload) > maxExtraBytes {
		t.Fatalf("payload exceeds cap: %d bytes", len(payload))
	}
	if !utf8.ValidString(payload) {
		t.Fatal("truncated payload is not valid UTF-8")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short", in: "abc", n: 5, want: "abc"},
		{name: "ascii", in: "abcdef", n: 3, want: "abc"},
		{name: "inside rune", in: "aé", n: 2, want: "a"},
		{name: "on boundary", in: "aéb", n: 3, want: "aé"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(truncate([]byte(tt.in), tt.n)); got != tt.want {
				t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
		})
	}
}
