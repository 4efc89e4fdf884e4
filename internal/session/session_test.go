package session

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/gamenode/internal/engine"
	"github.com/vovakirdan/gamenode/internal/engine/enginetest"
)

type testConn struct {
	id     string
	pushes []string
	closed bool
}

func (c *testConn) ID() string { return c.id }
func (c *testConn) Push(msgType string, _ json.RawMessage) bool {
	c.pushes = append(c.pushes, msgType)
	return true
}
func (c *testConn) Close() { c.closed = true }

func newTestSession(t *testing.T) (*Session, *enginetest.Fake) {
	t.Helper()

	fake := enginetest.New()
	s, err := New("g1", fake)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	s.Started = true
	s.AddPlayer("alice", "lobby-a")
	s.AddPlayer("bob", "lobby-b")
	return s, fake
}

type emptyEngine struct{ *enginetest.Fake }

func (emptyEngine) Commands() engine.CommandSet { return engine.CommandSet{} }

func TestNewRejectsInvalidCommandSet(t *testing.T) {
	_, err := New("g1", emptyEngine{enginetest.New()})
	if !errors.Is(err, engine.ErrNoCommands) {
		t.Fatalf("expected ErrNoCommands, got %v", err)
	}
}

func TestCommandLookup(t *testing.T) {
	s, _ := newTestSession(t)
	if _, err := s.Command("draw"); err != nil {
		t.Fatalf("draw should resolve: %v", err)
	}
	if _, err := s.Command("constructor"); !errors.Is(err, engine.ErrUnknownCommand) {
		t.Fatalf("expected unknown command, got %v", err)
	}
}

func TestConnectKeepsLobbyID(t *testing.T) {
	s, fake := newTestSession(t)

	reconnected, err := s.Connect("alice", &testConn{id: "c1"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if reconnected {
		t.Fatalf("first connect is not a reconnect")
	}

	p := s.Participant("alice")
	if p.ID != "c1" || p.LobbyID != "lobby-a" || !p.Live() {
		t.Fatalf("unexpected participant: %+v", p)
	}
	if len(fake.Calls) != 0 {
		t.Fatalf("engine should not see a first connect, got %v", fake.Calls)
	}
}

func TestReconnectRunsTransitionOnce(t *testing.T) {
	s, fake := newTestSession(t)
	_, _ = s.Connect("alice", &testConn{id: "c1"})
	s.Disconnect("alice")

	p := s.Participant("alice")
	if !p.Disconnected || p.Conn != nil {
		t.Fatalf("expected disconnected seat, got %+v", p)
	}

	before := *p
	reconnected, err := s.Connect("alice", &testConn{id: "c2"})
	if err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if !reconnected {
		t.Fatalf("expected reconnect")
	}
	if got := fake.CountCalls("reconnect:alice"); got != 1 {
		t.Fatalf("expected one reconnect transition, got %d", got)
	}
	if p.ID != "c2" || p.LobbyID != "c1" || p.Disconnected {
		t.Fatalf("unexpected participant after reconnect: %+v", p)
	}
	if p.Name != before.Name || p.Spectator != before.Spectator || p.Left != before.Left {
		t.Fatalf("other fields changed: before %+v after %+v", before, p)
	}
}

func TestConnectUnknownParticipant(t *testing.T) {
	s, _ := newTestSession(t)
	if _, err := s.Connect("mallory", &testConn{id: "c1"}); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
}

func TestSpectatorDisconnectRemovesSeat(t *testing.T) {
	s, _ := newTestSession(t)
	if !s.Watch("carol") {
		t.Fatalf("watch should succeed")
	}
	_, _ = s.Connect("carol", &testConn{id: "c3"})

	if spectator := s.Disconnect("carol"); !spectator {
		t.Fatalf("expected spectator")
	}
	if s.Participant("carol") != nil {
		t.Fatalf("spectator seat should be removed")
	}
}

func TestWatchRefusesHeldSeat(t *testing.T) {
	s, fake := newTestSession(t)
	if s.Watch("alice") {
		t.Fatalf("watch must not replace a player seat")
	}
	if fake.CountCalls("watch:alice") != 0 {
		t.Fatalf("engine should not be told")
	}
}

func TestLeaveStampsFinish(t *testing.T) {
	s, fake := newTestSession(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.Leave("alice")

	if !s.Participant("alice").Left {
		t.Fatalf("alice should be marked left")
	}
	if !s.FinishedAt.Equal(now) {
		t.Fatalf("expected finish stamp, got %v", s.FinishedAt)
	}
	if fake.CountCalls("leave:alice") != 1 {
		t.Fatalf("engine leave not called")
	}
}

func TestIsEmpty(t *testing.T) {
	s, _ := newTestSession(t)
	if s.IsEmpty() {
		t.Fatalf("session with pending lobby players is not empty")
	}

	s.Leave("alice")
	s.Leave("bob")
	if !s.IsEmpty() {
		t.Fatalf("session should be empty once everyone left")
	}
}

func TestIsEmptyIgnoresPendingSpectators(t *testing.T) {
	fake := enginetest.New()
	s, err := New("g2", fake)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.Watch("carol")
	if !s.IsEmpty() {
		t.Fatalf("a never-connected spectator does not hold the session open")
	}
}

func TestFailedConnect(t *testing.T) {
	s, fake := newTestSession(t)
	s.Watch("carol")

	s.FailedConnect("carol")
	if s.Participant("carol") != nil {
		t.Fatalf("spectator should be dropped")
	}

	s.FailedConnect("bob")
	bob := s.Participant("bob")
	if bob == nil || !bob.Disconnected {
		t.Fatalf("player should be marked disconnected, got %+v", bob)
	}
	if fake.CountCalls("failedconnect:bob") != 1 {
		t.Fatalf("engine failed connect not called")
	}
	if s.FinishedAt.IsZero() {
		t.Fatalf("finish time should be stamped")
	}

	_, _ = s.Connect("alice", &testConn{id: "c1"})
	s.FailedConnect("alice")
	if s.Participant("alice").Disconnected {
		t.Fatalf("a connected player cannot fail to connect")
	}
}

func TestParticipantsKeepSeatingOrder(t *testing.T) {
	s, _ := newTestSession(t)
	s.Watch("carol")

	var names []string
	for _, p := range s.Participants() {
		names = append(names, p.Name)
	}
	if len(names) != 3 || names[0] != "alice" || names[1] != "bob" || names[2] != "carol" {
		t.Fatalf("unexpected order: %v", names)
	}
	if len(s.Players()) != 2 {
		t.Fatalf("expected two players")
	}
}

func TestSummaryIncludesPassword(t *testing.T) {
	s, _ := newTestSession(t)
	s.Password = "hunter2"

	sum := s.Summary("node-1")
	if sum.Password != "hunter2" || sum.Node != "node-1" || len(sum.Players) != 2 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}
