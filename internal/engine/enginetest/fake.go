// Package enginetest provides an in-memory engine for tests.
package enginetest

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vovakirdan/gamenode/internal/engine"
	"github.com/vovakirdan/gamenode/internal/proto"
)

// ErrRejected is returned by the "fail" command.
var ErrRejected = errors.New("rejected by engine")

// Fake is a minimal engine. Each player holds a hidden hand; "draw" adds the
// next card to the caller's hand, "boom" panics, "fail" returns an error and
// "win" reports the caller as winner.
type Fake struct {
	*engine.Log

	Calls     []string
	Hands     map[string][]string
	Decks     map[string]json.RawMessage
	Listener  engine.Listener
	Continues int
	// Extra is merged into FullState, so tests can plant values there.
	Extra map[string]any

	next int
}

// New returns an empty fake engine.
func New() *Fake {
	return &Fake{
		Log:   engine.NewLog(),
		Hands: make(map[string][]string),
		Decks: make(map[string]json.RawMessage),
		Extra: make(map[string]any),
	}
}

// Factory builds a fresh Fake for every game and hands it to record.
func Factory(record func(*Fake)) engine.Factory {
	return func(_ proto.PendingGame, env engine.Env) (engine.Engine, error) {
		f := New()
		f.Listener = env.Listener
		if record != nil {
			record(f)
		}
		return f, nil
	}
}

func (f *Fake) record(format string, args ...any) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

// Commands implements engine.Engine.
func (f *Fake) Commands() engine.CommandSet {
	return engine.CommandSet{
		"draw": func(player string, _ []json.RawMessage) error {
			f.next++
			f.Hands[player] = append(f.Hands[player], fmt.Sprintf("%s-card-%d", player, f.next))
			return nil
		},
		"say": func(player string, args []json.RawMessage) error {
			var text string
			if len(args) > 0 {
				if err := json.Unmarshal(args[0], &text); err != nil {
					return err
				}
			}
			f.AddMessage("%s: %s", player, text)
			return nil
		},
		"boom": func(string, []json.RawMessage) error {
			panic("card ability exploded")
		},
		"fail": func(string, []json.RawMessage) error {
			return ErrRejected
		},
		"win": func(player string, _ []json.RawMessage) error {
			if f.Listener != nil {
				f.Listener.GameWon("concede", player)
			}
			return nil
		},
	}
}

// SelectDeck implements engine.Engine.
func (f *Fake) SelectDeck(player string, deck json.RawMessage) error {
	f.record("deck:%s", player)
	f.Decks[player] = deck
	return nil
}

// Initialise implements engine.Engine.
func (f *Fake) Initialise() error {
	f.record("initialise")
	return nil
}

// Continue implements engine.Engine.
func (f *Fake) Continue() { f.Continues++ }

// Watch implements engine.Engine.
func (f *Fake) Watch(name string) { f.record("watch:%s", name) }

// Reconnect implements engine.Engine.
func (f *Fake) Reconnect(name string) {
	f.record("reconnect:%s", name)
	f.AddMessage("%s has reconnected", name)
}

// Disconnect implements engine.Engine.
func (f *Fake) Disconnect(name string) { f.record("disconnect:%s", name) }

// FailedConnect implements engine.Engine.
func (f *Fake) FailedConnect(name string) { f.record("failedconnect:%s", name) }

// Leave implements engine.Engine.
func (f *Fake) Leave(name string) { f.record("leave:%s", name) }

// State implements engine.Engine. Other players' hands are reduced to counts.
func (f *Fake) State(viewer string) any {
	opponents := make(map[string]int)
	for name, hand := range f.Hands {
		if name != viewer {
			opponents[name] = len(hand)
		}
	}
	return map[string]any{
		"viewer":    viewer,
		"hand":      append([]string{}, f.Hands[viewer]...),
		"opponents": opponents,
		"messages":  f.Messages(),
	}
}

// FullState implements engine.Engine.
func (f *Fake) FullState() any {
	state := map[string]any{
		"hands":   f.Hands,
		"players": len(f.Hands),
	}
	for k, v := range f.Extra {
		state[k] = v
	}
	return state
}

// PlayerState implements engine.Engine.
func (f *Fake) PlayerState(player string) any {
	return map[string]any{"hand": f.Hands[player]}
}

// SaveState implements engine.Engine.
func (f *Fake) SaveState() any {
	return map[string]any{"players": len(f.Hands)}
}

// Summary implements engine.Engine.
func (f *Fake) Summary(full bool) any {
	return map[string]any{"full": full}
}

// CountCalls returns how many recorded calls equal call.
func (f *Fake) CountCalls(call string) int {
	n := 0
	for _, c := range f.Calls {
		if c == call {
			n++
		}
	}
	return n
}
