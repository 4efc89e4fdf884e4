package core

import (
	"context"
	"errors"

	"github.com/vovakirdan/gamenode/internal/engine"
	"github.com/vovakirdan/gamenode/internal/metrics"
	"github.com/vovakirdan/gamenode/internal/proto"
	"github.com/vovakirdan/gamenode/internal/session"
)

// guard runs engine work for s inside the fault boundary.
func (h *Hub) guard(ctx context.Context, s *session.Session, fn func() error) error {
	err := h.boundary.Run(ctx, s, fn)
	if err != nil {
		h.metrics.Faults.Inc()
	}
	return err
}

func (h *Hub) reject(c *Client, reason string) {
	h.metrics.Rejected.WithLabelValues(reason).Inc()
	h.log.Debug().Str("client_id", c.ID()).Str("username", c.Username).Str("reason", reason).Msg("connection rejected")
	c.Close()
}

func (h *Hub) connect(ctx context.Context, c *Client) {
	if c.Username == "" {
		h.reject(c, RejectUnauthenticated)
		return
	}

	s := h.registry.FindByParticipant(c.Username)
	if s == nil {
		h.reject(c, RejectNoSession)
		return
	}

	p := s.Participant(c.Username)
	if prev, ok := p.Conn.(*Client); ok && prev != c {
		// A newer tab wins; the old connection is dropped without a disconnect transition.
		h.detach(prev)
		prev.Close()
	}

	var reconnected bool
	err := h.guard(ctx, s, func() error {
		var err error
		reconnected, err = s.Connect(c.Username, c)
		return err
	})
	if err != nil || p.Conn != c {
		c.Close()
		h.project(s)
		return
	}

	h.attached[c] = s.ID
	if h.room(s.ID).AddClient(c) {
		h.metrics.Connections.Inc()
	}

	if !p.Spectator {
		_ = h.guard(ctx, s, func() error {
			s.Engine().AddMessage("%s has connected to the game server", c.Username)
			return nil
		})
	}

	h.log.Info().
		Str("session_id", s.ID).
		Str("username", c.Username).
		Str("client_id", c.ID()).
		Bool("reconnected", reconnected).
		Msg("client attached")

	h.project(s)
}

func (h *Hub) disconnect(ctx context.Context, c *Client) {
	id, ok := h.detach(c)
	if !ok {
		return
	}

	s := h.registry.Get(id)
	if s == nil {
		return
	}
	p := s.Participant(c.Username)
	if p == nil || p.Conn != c {
		return
	}

	var spectator bool
	_ = h.guard(ctx, s, func() error {
		spectator = s.Disconnect(c.Username)
		return nil
	})

	h.log.Info().Str("session_id", s.ID).Str("username", c.Username).Bool("spectator", spectator).Msg("client disconnected")

	if s.IsEmpty() {
		h.closeSession(s, "empty")
		return
	}
	if spectator {
		h.notifier.PlayerLeft(s.ID, h.saveState(ctx, s), c.Username, true)
	}
	h.project(s)
}

func (h *Hub) dispatch(ctx context.Context, c *Client, cmd *Command) {
	id, ok := h.attached[c]
	if !ok {
		return
	}
	s := h.registry.Get(id)
	if s == nil {
		return
	}
	p := s.Participant(c.Username)
	if p == nil || p.Conn != c {
		return
	}

	switch cmd.Kind {
	case CommandLeaveGame:
		h.leave(ctx, s, c)
	case CommandGame:
		h.command(ctx, s, c, cmd)
	}
}

func (h *Hub) leave(ctx context.Context, s *session.Session, c *Client) {
	var spectator bool
	_ = h.guard(ctx, s, func() error {
		spectator = s.Leave(c.Username)
		return nil
	})

	h.log.Info().Str("session_id", s.ID).Str("username", c.Username).Bool("spectator", spectator).Msg("participant left")

	h.notifier.PlayerLeft(s.ID, h.saveState(ctx, s), c.Username, spectator)
	c.Push(proto.OutboundTypeClearGameState, nil)
	h.detach(c)

	if s.IsEmpty() {
		h.closeSession(s, "empty")
		return
	}
	h.project(s)
}

func (h *Hub) command(ctx context.Context, s *session.Session, c *Client, cmd *Command) {
	handler, err := s.Command(cmd.Name)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownCommand) {
			h.metrics.Commands.WithLabelValues(metrics.OutcomeUnknown).Inc()
			h.log.Debug().Str("session_id", s.ID).Str("username", c.Username).Str("command", cmd.Name).Msg("unknown command ignored")
		}
		return
	}

	err = h.guard(ctx, s, func() error {
		if err := handler(c.Username, cmd.Args); err != nil {
			return err
		}
		s.Engine().Continue()
		return nil
	})
	if err != nil {
		h.metrics.Commands.WithLabelValues(metrics.OutcomeFault).Inc()
	} else {
		h.metrics.Commands.WithLabelValues(metrics.OutcomeOK).Inc()
	}

	h.project(s)
}

func (h *Hub) saveState(ctx context.Context, s *session.Session) any {
	var state any
	_ = h.guard(ctx, s, func() error {
		state = s.Engine().SaveState()
		return nil
	})
	return state
}
