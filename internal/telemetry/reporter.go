package telemetry

import (
	"context"
	"encoding/json"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/vovakirdan/gamenode/internal/telemetry"

	// maxExtraBytes caps the diagnostic payload attached to a span.
	maxExtraBytes = 64 << 10
)

// Reporter records engine faults as error spans.
type Reporter struct {
	tracer trace.Tracer
	log    *zerolog.Logger
}

// NewReporter builds a reporter on the global tracer provider.
func NewReporter(logger *zerolog.Logger) *Reporter {
	return NewReporterWithTracer(otel.Tracer(tracerName), logger)
}

// NewReporterWithTracer builds a reporter on an explicit tracer.
func NewReporterWithTracer(tracer trace.Tracer, logger *zerolog.Logger) *Reporter {
	return &Reporter{tracer: tracer, log: logger}
}

// Report implements fault.Reporter. It never blocks on export.
func (r *Reporter) Report(ctx context.Context, err error, sessionID string, extra map[string]any) {
	_, span := r.tracer.Start(ctx, "engine.fault",
		trace.WithAttributes(attribute.String("game.id", sessionID)),
	)
	defer span.End()

	span.RecordError(err, trace.WithStackTrace(true))
	span.SetStatus(codes.Error, err.Error())

	if extra == nil {
		return
	}
	payload, mErr := json.Marshal(extra)
	if mErr != nil {
		r.log.Warn().Err(mErr).Str("session_id", sessionID).Msg("fault payload not serialisable")
		return
	}
	truncated := len(payload) > maxExtraBytes
	if truncated {
		payload = truncate(payload, maxExtraBytes)
	}
	span.SetAttributes(
		attribute.String("fault.extra", string(payload)),
		attribute.Bool("fault.extra_truncated", truncated),
	)
}

// truncate cuts b to at most n bytes without splitting a rune.
func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	for n > 0 && !utf8.RuneStart(b[n]) {
		n--
	}
	return b[:n]
}
