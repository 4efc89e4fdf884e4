package fault

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamenode/internal/engine/enginetest"
	"github.com/vovakirdan/gamenode/internal/session"
)

type report struct {
	err       error
	sessionID string
	extra     map[string]any
}

type recordingReporter struct {
	reports []report
}

func (r *recordingReporter) Report(_ context.Context, err error, sessionID string, extra map[string]any) {
	r.reports = append(r.reports, report{err: err, sessionID: sessionID, extra: extra})
}

func newBoundaryFixture(t *testing.T) (*Boundary, *recordingReporter, *session.Session, *enginetest.Fake) {
	t.Helper()

	logger := zerolog.Nop()
	rep := &recordingReporter{}
	fake := enginetest.New()
	s, err := session.New("g1", fake)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	s.AddPlayer("alice", "a")
	s.AddPlayer("bob", "b")
	return NewBoundary(&logger, rep), rep, s, fake
}

func lastMessage(f *enginetest.Fake) string {
	msgs := f.Messages()
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Text
}

func TestRunSuccessDoesNothing(t *testing.T) {
	b, rep, s, fake := newBoundaryFixture(t)

	if err := b.Run(context.Background(), s, func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rep.reports) != 0 || len(fake.Messages()) != 0 {
		t.Fatalf("nothing should be reported or logged to the game")
	}
}

func TestRunContainsPanic(t *testing.T) {
	b, rep, s, fake := newBoundaryFixture(t)
	fake.Hands["alice"] = []string{"secret"}

	err := b.Run(context.Background(), s, func() error { panic("ability blew up") })

	var pe *PanicError
	if !errors.As(err, &pe) || pe.Value != "ability blew up" || len(pe.Stack) == 0 {
		t.Fatalf("expected PanicError with stack, got %v", err)
	}
	if len(rep.reports) != 1 || rep.reports[0].sessionID != "g1" {
		t.Fatalf("expected one report, got %+v", rep.reports)
	}

	extra := rep.reports[0].extra
	game, ok := extra["game"].(map[string]any)
	if !ok {
		t.Fatalf("expected game state in report, got %#v", extra["game"])
	}
	if _, present := game["players"]; present {
		t.Fatalf("player collection must be suppressed")
	}
	if _, ok := extra["messages"]; !ok {
		t.Fatalf("messages missing from report")
	}
	if _, ok := extra["alice"]; !ok {
		t.Fatalf("per-player view missing from report")
	}
	if lastMessage(fake) != Apology {
		t.Fatalf("apology not appended, got %q", lastMessage(fake))
	}
}

func TestRunContainsReturnedError(t *testing.T) {
	b, rep, s, fake := newBoundaryFixture(t)

	err := b.Run(context.Background(), s, func() error { return enginetest.ErrRejected })
	if !errors.Is(err, enginetest.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if len(rep.reports) != 1 || lastMessage(fake) != Apology {
		t.Fatalf("returned error must be handled like a panic")
	}
}

func TestRunOverflowUsesSnapshot(t *testing.T) {
	b, rep, s, fake := newBoundaryFixture(t)
	fake.Extra["socket"] = make(chan int)

	_ = b.Run(context.Background(), s, func() error {
		return errors.New("RangeError: Maximum call stack size exceeded")
	})

	extra := rep.reports[0].extra
	if _, ok := extra["game"]; ok {
		t.Fatalf("full state must not be dumped on overflow")
	}
	findings, ok := extra["badSerialization"].([]Finding)
	if !ok || len(findings) != 1 || findings[0].Path != ".socket" {
		t.Fatalf("unexpected findings: %#v", extra["badSerialization"])
	}
}

func TestRunUnmarshalableStateFallsBackToSnapshot(t *testing.T) {
	b, rep, s, fake := newBoundaryFixture(t)
	fake.Extra["callback"] = func() {}

	_ = b.Run(context.Background(), s, func() error { panic("x") })

	extra := rep.reports[0].extra
	if _, ok := extra["marshalError"]; !ok {
		t.Fatalf("expected marshal error, got %#v", extra)
	}
	if lastMessage(fake) != Apology {
		t.Fatalf("apology must still be appended")
	}
}

func TestRunWithoutReporter(t *testing.T) {
	logger := zerolog.Nop()
	b := NewBoundary(&logger, nil)
	fake := enginetest.New()
	s, _ := session.New("g1", fake)

	if err := b.Run(context.Background(), s, func() error { panic("x") }); err == nil {
		t.Fatalf("expected error")
	}
	if lastMessage(fake) != Apology {
		t.Fatalf("apology must be appended without a reporter")
	}
}
