// Package core runs every live game of the node on a single goroutine.
//
// The Hub owns the session registry. Transports and the message bus never
// touch sessions directly: they hand clients, commands and lobby requests to
// the hub, which applies them one at a time.
package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamenode/internal/engine"
	"github.com/vovakirdan/gamenode/internal/fault"
	"github.com/vovakirdan/gamenode/internal/metrics"
	"github.com/vovakirdan/gamenode/internal/proto"
	"github.com/vovakirdan/gamenode/internal/session"
)

const (
	defaultSweepInterval = 60 * time.Second
	defaultRetention     = 20 * time.Minute
)

// Notifier receives session lifecycle events bound for the lobby.
type Notifier interface {
	GameClosed(gameID string)
	GameWon(game any, winner, reason string)
	PlayerLeft(gameID string, game any, player string, spectator bool)
}

type nopNotifier struct{}

func (nopNotifier) GameClosed(string)                    {}
func (nopNotifier) GameWon(any, string, string)          {}
func (nopNotifier) PlayerLeft(string, any, string, bool) {}

// Options configures a Hub.
type Options struct {
	// Node is this node's identity, reported in lobby summaries.
	Node     string
	Factory  engine.Factory
	Boundary *fault.Boundary
	Notifier Notifier
	Metrics  *metrics.Metrics
	// MaxSessions limits concurrent games. Zero means unlimited.
	MaxSessions   int
	SweepInterval time.Duration
	Retention     time.Duration
	Now           func() time.Time
}

type clientCommand struct {
	client *Client
	cmd    *Command
}

// Hub coordinates sessions, clients and lobby requests.
type Hub struct {
	log      *zerolog.Logger
	node     string
	factory  engine.Factory
	boundary *fault.Boundary
	notifier Notifier
	metrics  *metrics.Metrics

	maxSessions   int
	sweepInterval time.Duration
	retention     time.Duration
	now           func() time.Time

	// Owned by the run loop.
	registry *session.Registry
	rooms    map[string]*Room
	attached map[*Client]string
	cards    *proto.CardData

	register   chan *Client
	unregister chan *Client
	commands   chan clientCommand
	tasks      chan func(context.Context)
	stopped    chan struct{}
}

// NewHub builds a hub. Call Run to start it.
func NewHub(opts Options, logger *zerolog.Logger) *Hub {
	l := logger.With().Str("component", "hub").Logger()

	h := &Hub{
		log:           &l,
		node:          opts.Node,
		factory:       opts.Factory,
		boundary:      opts.Boundary,
		notifier:      opts.Notifier,
		metrics:       opts.Metrics,
		maxSessions:   opts.MaxSessions,
		sweepInterval: opts.SweepInterval,
		retention:     opts.Retention,
		now:           opts.Now,
		registry:      session.NewRegistry(),
		rooms:         make(map[string]*Room),
		attached:      make(map[*Client]string),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		commands:      make(chan clientCommand),
		tasks:         make(chan func(context.Context)),
		stopped:       make(chan struct{}),
	}
	if h.boundary == nil {
		h.boundary = fault.NewBoundary(logger, nil)
	}
	if h.notifier == nil {
		h.notifier = nopNotifier{}
	}
	if h.metrics == nil {
		h.metrics = metrics.Nop()
	}
	if h.sweepInterval <= 0 {
		h.sweepInterval = defaultSweepInterval
	}
	if h.retention <= 0 {
		h.retention = defaultRetention
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// Run processes clients, commands and lobby requests until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	ticker := time.NewTicker(h.sweepInterval)
	defer ticker.Stop()

	h.log.Info().Dur("sweep_interval", h.sweepInterval).Dur("retention", h.retention).Msg("hub started")
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case c := <-h.register:
			h.connect(ctx, c)
		case c := <-h.unregister:
			h.disconnect(ctx, c)
		case cc := <-h.commands:
			h.dispatch(ctx, cc.client, cc.cmd)
		case fn := <-h.tasks:
			fn(ctx)
		case <-ticker.C:
			h.sweep()
		}
	}
}

// RegisterClient attaches a freshly handshaken client to its session.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.stopped:
		c.Close()
	}
}

// UnregisterClient reports that the client's transport has closed.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

// Submit queues a client command.
func (h *Hub) Submit(c *Client, cmd *Command) {
	select {
	case h.commands <- clientCommand{client: c, cmd: cmd}:
	case <-h.stopped:
	}
}

// do runs fn on the hub goroutine and waits for it to finish.
func (h *Hub) do(ctx context.Context, fn func(context.Context)) error {
	done := make(chan struct{})
	task := func(runCtx context.Context) {
		defer close(done)
		fn(runCtx)
	}

	select {
	case h.tasks <- task:
	case <-h.stopped:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// query runs fn on the hub goroutine and hands its result back. On error the
// zero value is returned and nothing written by fn is read.
func query[T any](ctx context.Context, h *Hub, fn func(context.Context) T) (T, error) {
	result := make(chan T, 1)
	err := h.do(ctx, func(runCtx context.Context) {
		result <- fn(runCtx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return <-result, nil
}

func (h *Hub) room(id string) *Room {
	r, ok := h.rooms[id]
	if !ok {
		r = NewRoom(id)
		h.rooms[id] = r
	}
	return r
}

// detach removes c from whatever session it is attached to.
func (h *Hub) detach(c *Client) (string, bool) {
	id, ok := h.attached[c]
	if !ok {
		return "", false
	}
	delete(h.attached, c)
	if r, ok := h.rooms[id]; ok && r.RemoveClient(c) {
		h.metrics.Connections.Dec()
	}
	return id, true
}

// closeSession removes s, closes every client still attached and tells the lobby.
func (h *Hub) closeSession(s *session.Session, reason string) {
	if !h.registry.Remove(s.ID) {
		return
	}
	attached := 0
	if r, ok := h.rooms[s.ID]; ok {
		attached = r.Len()
		for _, c := range r.Clients() {
			h.detach(c)
			c.Close()
		}
		delete(h.rooms, s.ID)
	}
	h.metrics.Sessions.Set(float64(h.registry.Len()))

	h.log.Info().Str("session_id", s.ID).Str("reason", reason).Int("clients", attached).Msg("session closed")
	h.notifier.GameClosed(s.ID)
}

func (h *Hub) shutdown() {
	for c := range h.attached {
		c.Close()
	}
	h.log.Info().Int("sessions", h.registry.Len()).Msg("hub stopped")
}
