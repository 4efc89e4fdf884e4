// Package session holds running games and their seats.
//
// Nothing here is safe for concurrent use: sessions are owned by the hub
// goroutine and mutated only from there.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vovakirdan/gamenode/internal/engine"
	"github.com/vovakirdan/gamenode/internal/proto"
)

// PendingID is the connection id of a seat that has never connected.
const PendingID = "TBA"

// Conn is a live connection as seen by a session.
type Conn interface {
	ID() string
	// Push queues one message without blocking. It reports false if dropped.
	Push(msgType string, data json.RawMessage) bool
	// Close forcibly ends the connection from the server side.
	Close()
}

// Participant is one seat: a player or a spectator.
type Participant struct {
	Name string
	// ID is the live connection id, or the lobby-assigned id before connect.
	ID string
	// LobbyID is the previous connection id, kept for correlation after reconnect.
	LobbyID      string
	Spectator    bool
	Left         bool
	Disconnected bool
	// Connected is set once the participant has reached this node at least once.
	Connected bool
	Conn      Conn
}

// Live reports whether the participant can receive pushes.
func (p *Participant) Live() bool {
	return p.Conn != nil && !p.Left && !p.Disconnected
}

// Session is one pending or running game.
type Session struct {
	ID         string
	Name       string
	Owner      string
	Password   string
	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	Started    bool

	eng          engine.Engine
	commands     engine.CommandSet
	participants map[string]*Participant
	order        []string
	now          func() time.Time
}

// New builds a session around eng. The engine's command set is validated here
// so unknown commands are rejected by lookup, never discovered at dispatch.
func New(id string, eng engine.Engine) (*Session, error) {
	commands := eng.Commands()
	if err := commands.Validate(); err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}

	return &Session{
		ID:           id,
		Name:         id,
		CreatedAt:    time.Now(),
		eng:          eng,
		commands:     commands,
		participants: make(map[string]*Participant),
		now:          time.Now,
	}, nil
}

// SetClock replaces the time source used for finish stamps.
func (s *Session) SetClock(now func() time.Time) {
	s.now = now
}

// Engine returns the rules engine handle.
func (s *Session) Engine() engine.Engine {
	return s.eng
}

// Command resolves a client command name.
func (s *Session) Command(name string) (engine.Handler, error) {
	return s.commands.Lookup(name)
}

// AddPlayer seats a lobby player that has not connected yet.
func (s *Session) AddPlayer(name, lobbyID string) *Participant {
	return s.add(&Participant{Name: name, ID: lobbyID})
}

// AddSpectator seats a spectator.
func (s *Session) AddSpectator(name, id string) *Participant {
	return s.add(&Participant{Name: name, ID: id, Spectator: true})
}

func (s *Session) add(p *Participant) *Participant {
	if _, exists := s.participants[p.Name]; !exists {
		s.order = append(s.order, p.Name)
	}
	s.participants[p.Name] = p
	return p
}

// Participant returns the seat for name, or nil.
func (s *Session) Participant(name string) *Participant {
	return s.participants[name]
}

// Participants returns all seats in seating order.
func (s *Session) Participants() []*Participant {
	out := make([]*Participant, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.participants[name])
	}
	return out
}

// Players returns non-spectator seats in seating order.
func (s *Session) Players() []*Participant {
	out := make([]*Participant, 0, len(s.order))
	for _, name := range s.order {
		if p := s.participants[name]; !p.Spectator {
			out = append(out, p)
		}
	}
	return out
}

func (s *Session) remove(name string) {
	if _, ok := s.participants[name]; !ok {
		return
	}
	delete(s.participants, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// IsEmpty reports whether no seat is held by someone who is or may still be here.
func (s *Session) IsEmpty() bool {
	for _, p := range s.participants {
		if !p.Disconnected && !p.Left && p.ID != PendingID {
			return false
		}
	}
	return true
}

// Connect binds conn to the seat for name. The previous connection id is kept
// as LobbyID. A disconnected seat goes through the engine's reconnect
// transition exactly once. It reports whether a reconnect happened.
func (s *Session) Connect(name string, conn Conn) (reconnected bool, err error) {
	p := s.participants[name]
	if p == nil {
		return false, fmt.Errorf("%w: %s", ErrNotParticipant, name)
	}

	p.LobbyID = p.ID
	p.ID = conn.ID()
	if p.Disconnected {
		s.eng.Reconnect(name)
		p.Disconnected = false
		reconnected = true
	}
	p.Conn = conn
	p.Connected = true
	return reconnected, nil
}

// Disconnect handles a transport close. Spectators are dropped, players are
// kept for reconnect. It reports whether the seat was a spectator.
func (s *Session) Disconnect(name string) (spectator bool) {
	p := s.participants[name]
	if p == nil {
		return false
	}

	s.eng.Disconnect(name)
	p.Conn = nil
	if p.Spectator {
		s.remove(name)
		return true
	}
	p.Disconnected = true
	return false
}

// Leave handles an explicit leave. A player leaving an unfinished game stamps
// the finish time so the session is eventually reclaimed.
func (s *Session) Leave(name string) (spectator bool) {
	p := s.participants[name]
	if p == nil {
		return false
	}

	s.eng.Leave(name)
	p.Conn = nil
	if p.Spectator {
		s.remove(name)
		return true
	}
	p.Left = true
	if s.Started && s.FinishedAt.IsZero() {
		s.FinishedAt = s.now()
	}
	return false
}

// FailedConnect handles a lobby report that name never reached this node.
func (s *Session) FailedConnect(name string) {
	p := s.participants[name]
	if p == nil || p.Connected {
		return
	}

	if p.Spectator || !s.Started {
		s.remove(name)
		return
	}
	s.eng.FailedConnect(name)
	p.Disconnected = true
	if s.FinishedAt.IsZero() {
		s.FinishedAt = s.now()
	}
}

// Watch seats a spectator that has not connected yet. It refuses to replace a
// seat that is still held.
func (s *Session) Watch(name string) bool {
	if p := s.participants[name]; p != nil && !p.Left {
		return false
	}
	s.AddSpectator(name, PendingID)
	s.eng.Watch(name)
	return true
}

// MarkFinished stamps the finish time once.
func (s *Session) MarkFinished() {
	if s.FinishedAt.IsZero() {
		s.FinishedAt = s.now()
	}
}

// ParticipantSummaries lists seats for lobby and debug views.
func (s *Session) ParticipantSummaries() []proto.ParticipantSummary {
	out := make([]proto.ParticipantSummary, 0, len(s.order))
	for _, p := range s.Participants() {
		out = append(out, proto.ParticipantSummary{
			Name:         p.Name,
			ID:           p.ID,
			Left:         p.Left,
			Disconnected: p.Disconnected,
			Spectator:    p.Spectator,
		})
	}
	return out
}

// Summary is the lobby-facing view, including the game password.
func (s *Session) Summary(node string) proto.GameSummary {
	return proto.GameSummary{
		ID:        s.ID,
		Name:      s.Name,
		Owner:     s.Owner,
		Password:  s.Password,
		Started:   s.Started,
		StartedAt: s.StartedAt,
		Node:      node,
		Players:   s.ParticipantSummaries(),
		Details:   s.eng.Summary(true),
	}
}
