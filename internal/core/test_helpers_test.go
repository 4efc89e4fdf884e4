package core

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamenode/internal/engine"
	"github.com/vovakirdan/gamenode/internal/engine/enginetest"
	"github.com/vovakirdan/gamenode/internal/proto"
)

func mustEvent(t *testing.T, ch <-chan *Event, msgType string) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Type == msgType {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event %q not received", msgType)
	return nil
}

func mustClosed(t *testing.T, c *Client) {
	t.Helper()

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("client %s was not closed", c.ID())
	}
}

// barrier waits until the hub has processed everything submitted before it.
func barrier(t *testing.T, h *Hub) {
	t.Helper()

	if err := h.do(context.Background(), func(context.Context) {}); err != nil {
		t.Fatalf("barrier: %v", err)
	}
}

func drain(ch <-chan *Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type leftEvent struct {
	game      string
	player    string
	spectator bool
}

type wonEvent struct {
	winner string
	reason string
}

type recordingNotifier struct {
	mu     sync.Mutex
	closed []string
	won    []wonEvent
	left   []leftEvent
}

func (n *recordingNotifier) GameClosed(gameID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = append(n.closed, gameID)
}

func (n *recordingNotifier) GameWon(_ any, winner, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.won = append(n.won, wonEvent{winner: winner, reason: reason})
}

func (n *recordingNotifier) PlayerLeft(gameID string, _ any, player string, spectator bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.left = append(n.left, leftEvent{game: gameID, player: player, spectator: spectator})
}

func (n *recordingNotifier) Closed() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.closed...)
}

func (n *recordingNotifier) Won() []wonEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]wonEvent{}, n.won...)
}

func (n *recordingNotifier) Left() []leftEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]leftEvent{}, n.left...)
}

type testHub struct {
	*Hub
	notifier *recordingNotifier
	clock    *fakeClock
	fakes    map[string]*enginetest.Fake
}

func newTestHub(t *testing.T, configure func(*Options)) *testHub {
	t.Helper()

	th := &testHub{
		notifier: &recordingNotifier{},
		clock:    &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		fakes:    make(map[string]*enginetest.Fake),
	}
	opts := Options{
		Node:     "node-1",
		Notifier: th.notifier,
		Now:      th.clock.Now,
		Factory: func(game proto.PendingGame, env engine.Env) (engine.Engine, error) {
			f := enginetest.New()
			f.Listener = env.Listener
			th.fakes[game.ID] = f
			return f, nil
		},
	}
	if configure != nil {
		configure(&opts)
	}

	logger := zerolog.Nop()
	th.Hub = NewHub(opts, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go th.Run(ctx)
	return th
}

func (th *testHub) start(t *testing.T, id string, players ...string) {
	t.Helper()

	game := proto.PendingGame{ID: id, Name: id + " table", Owner: players[0], Password: "secret"}
	for _, p := range players {
		game.Players = append(game.Players, proto.PendingPlayer{
			ID:   "lobby-" + p,
			Name: p,
			Deck: json.RawMessage(`{"faction":"stark"}`),
		})
	}
	if err := th.StartGame(context.Background(), game); err != nil {
		t.Fatalf("start %s: %v", id, err)
	}
}

// connect attaches a new client for username and consumes its first projection.
func (th *testHub) connect(t *testing.T, id, username string) *Client {
	t.Helper()

	c := NewClient(id, username)
	th.RegisterClient(c)
	mustEvent(t, c.Events, proto.OutboundTypeGameState)
	return c
}

type projectedState struct {
	Viewer    string           `json:"viewer"`
	Hand      []string         `json:"hand"`
	Opponents map[string]int   `json:"opponents"`
	Messages  []engine.Message `json:"messages"`
}

func decodeState(t *testing.T, ev *Event) projectedState {
	t.Helper()

	var st projectedState
	if err := json.Unmarshal(ev.Data, &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return st
}

func (st projectedState) hasMessage(text string) bool {
	for _, m := range st.Messages {
		if m.Text == text {
			return true
		}
	}
	return false
}
