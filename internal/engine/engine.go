// Package engine defines the contract between the game node and a rules engine.
//
// The node never inspects engine state. It dispatches commands through a
// CommandSet fixed when the session is built, drives lifecycle transitions, and
// asks for per-viewer state to push to clients.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/vovakirdan/gamenode/internal/proto"
)

var (
	// ErrNoCommands is returned when an engine exposes no commands at all.
	ErrNoCommands = errors.New("engine exposes no commands")
	// ErrNilHandler is returned when a command name maps to a nil handler.
	ErrNilHandler = errors.New("nil command handler")
	// ErrReservedCommand is returned when an engine tries to claim a gateway command.
	ErrReservedCommand = errors.New("reserved command name")
	// ErrUnknownCommand is returned when a command is not in the set.
	ErrUnknownCommand = errors.New("unknown command")
)

// Handler runs one client command on behalf of player.
// A returned error or a panic is treated as an engine fault.
type Handler func(player string, args []json.RawMessage) error

// CommandSet maps client command names to handlers.
type CommandSet map[string]Handler

// Validate checks the set once, when a session is constructed.
func (c CommandSet) Validate() error {
	if len(c) == 0 {
		return ErrNoCommands
	}
	for name, h := range c {
		if name == proto.CommandLeaveGame {
			return fmt.Errorf("%w: %q", ErrReservedCommand, name)
		}
		if h == nil {
			return fmt.Errorf("%w: %q", ErrNilHandler, name)
		}
	}
	return nil
}

// Lookup returns the handler for name.
func (c CommandSet) Lookup(name string) (Handler, error) {
	h, ok := c[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return h, nil
}

// Names returns the command names in sorted order.
func (c CommandSet) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Engine is one running match.
type Engine interface {
	// Commands is called once per session and must not change afterwards.
	Commands() CommandSet

	SelectDeck(player string, deck json.RawMessage) error
	Initialise() error
	// Continue advances the game after a command has been applied.
	Continue()

	Watch(spectator string)
	Reconnect(player string)
	Disconnect(player string)
	FailedConnect(player string)
	Leave(player string)

	AddMessage(format string, args ...any)
	Messages() []Message

	// State is what viewer is allowed to see. Hidden zones of other players
	// must not be present.
	State(viewer string) any
	// FullState is the unfiltered state used for diagnostics only.
	FullState() any
	// PlayerState is the state of one player's own data, rendered for that player.
	PlayerState(player string) any
	SaveState() any
	Summary(full bool) any
}

// Listener receives results from a running engine.
type Listener interface {
	GameWon(reason, winner string)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(reason, winner string)

// GameWon implements Listener.
func (f ListenerFunc) GameWon(reason, winner string) { f(reason, winner) }

// Env is what a Factory gets to build an engine.
type Env struct {
	Listener Listener
	Cards    *proto.CardData
}

// Factory builds a fresh engine for a pending game.
type Factory func(game proto.PendingGame, env Env) (Engine, error)
