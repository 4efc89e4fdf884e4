// Package fault contains rules-engine failures to the session that caused them.
package fault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamenode/internal/session"
)

// Apology is appended to the game log after a contained fault.
const Apology = "A Server error has occured processing your game state, apologies.  " +
	"Your game may now be in an inconsistent state, or you may be able to continue.  " +
	"The error has been logged."

// Reporter forwards a fault and its diagnostic payload to error telemetry.
type Reporter interface {
	Report(ctx context.Context, err error, sessionID string, extra map[string]any)
}

// PanicError is a recovered panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes a panicked error value.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// overflowHints mark errors raised because state is too deep or cyclic to serialise.
var overflowHints = []string{
	"maximum call stack",
	"stack overflow",
	"encountered a cycle",
	"exceeded max depth",
}

// Boundary runs engine work and turns any failure into a logged, reported,
// player-visible notice instead of a crash.
type Boundary struct {
	log      *zerolog.Logger
	reporter Reporter
}

// NewBoundary builds a boundary. reporter may be nil.
func NewBoundary(logger *zerolog.Logger, reporter Reporter) *Boundary {
	l := logger.With().Str("component", "fault").Logger()
	return &Boundary{log: &l, reporter: reporter}
}

// Run executes fn for s. A panic or returned error is contained and returned;
// it never propagates further.
func (b *Boundary) Run(ctx context.Context, s *session.Session, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
		if err != nil {
			b.handle(ctx, s, err)
		}
	}()

	return fn()
}

func (b *Boundary) handle(ctx context.Context, s *session.Session, cause error) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Str("session_id", s.ID).Interface("panic", r).Msg("fault handling failed")
		}
	}()

	ev := b.log.Error().Err(cause).Str("session_id", s.ID)
	var pe *PanicError
	if errors.As(cause, &pe) {
		ev = ev.Bytes("stack", pe.Stack)
	}
	ev.Msg("engine fault")

	b.report(ctx, s, cause)

	s.Engine().AddMessage(Apology)
}

func (b *Boundary) report(ctx context.Context, s *session.Session, cause error) {
	if b.reporter == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Str("session_id", s.ID).Interface("panic", r).Msg("building fault report failed")
			b.reporter.Report(ctx, cause, s.ID, nil)
		}
	}()

	b.reporter.Report(ctx, cause, s.ID, DebugData(s, cause))
}

// DebugData builds the diagnostic payload for a fault in s.
//
// When the failure points at unserialisable state, only the snapshot walk is
// returned. Otherwise it holds the full game state without its player
// collection, the game log and each player's own view.
func DebugData(s *session.Session, cause error) map[string]any {
	eng := s.Engine()
	state := eng.FullState()

	if isOverflow(cause) {
		return map[string]any{"badSerialization": Snapshot(state, MaxDepth)}
	}

	game, err := stripped(state, "players", "messages")
	if err != nil {
		return map[string]any{
			"badSerialization": Snapshot(state, MaxDepth),
			"marshalError":     err.Error(),
		}
	}

	data := map[string]any{
		"game":     game,
		"messages": eng.Messages(),
	}
	for _, p := range s.Players() {
		data[p.Name] = eng.PlayerState(p.Name)
	}
	return data
}

func isOverflow(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range overflowHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

// stripped round-trips state through JSON and drops the given top-level keys.
func stripped(state any, keys ...string) (any, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		// Not an object; nothing to strip.
		return json.RawMessage(raw), nil
	}
	for _, k := range keys {
		delete(obj, k)
	}
	return obj, nil
}
