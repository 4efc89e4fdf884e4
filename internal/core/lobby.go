package core

import (
	"context"
	"fmt"

	"github.com/vovakirdan/gamenode/internal/engine"
	"github.com/vovakirdan/gamenode/internal/proto"
	"github.com/vovakirdan/gamenode/internal/session"
)

// StartGame builds and registers a session for a lobby game, seats its
// players and spectators, applies decks and initialises the engine.
// A game id that is or was registered on this node is rejected.
func (h *Hub) StartGame(ctx context.Context, game proto.PendingGame) error {
	var err error
	if doErr := h.do(ctx, func(runCtx context.Context) {
		err = h.startGame(runCtx, game)
	}); doErr != nil {
		return doErr
	}
	return err
}

func (h *Hub) startGame(ctx context.Context, game proto.PendingGame) error {
	if h.registry.Get(game.ID) != nil {
		return fmt.Errorf("start %s: %w", game.ID, session.ErrSessionExists)
	}
	if h.maxSessions > 0 && h.registry.Len() >= h.maxSessions {
		return fmt.Errorf("start %s: %w", game.ID, ErrNodeFull)
	}

	id := game.ID
	env := engine.Env{
		Listener: engine.ListenerFunc(func(reason, winner string) {
			h.gameWon(ctx, id, reason, winner)
		}),
		Cards: h.cards,
	}
	eng, err := h.buildEngine(game, env)
	if err != nil {
		return fmt.Errorf("start %s: %w", game.ID, err)
	}

	s, err := h.registry.Create(game.ID, eng)
	if err != nil {
		return fmt.Errorf("start %s: %w", game.ID, err)
	}
	s.SetClock(h.now)
	if game.Name != "" {
		s.Name = game.Name
	}
	s.Owner = game.Owner
	s.Password = game.Password
	s.CreatedAt = game.CreatedAt
	if s.CreatedAt.IsZero() {
		s.CreatedAt = h.now()
	}
	s.Started = true
	s.StartedAt = h.now()

	for _, pl := range game.Players {
		s.AddPlayer(pl.Name, pl.ID)
	}
	for _, sp := range game.Spectators {
		s.AddSpectator(sp.Name, sp.ID)
	}
	h.metrics.Sessions.Set(float64(h.registry.Len()))

	// A fault here leaves the session registered in its degraded state.
	_ = h.guard(ctx, s, func() error {
		for _, pl := range game.Players {
			if err := eng.SelectDeck(pl.Name, pl.Deck); err != nil {
				return fmt.Errorf("select deck for %s: %w", pl.Name, err)
			}
		}
		return eng.Initialise()
	})

	h.log.Info().Str("session_id", s.ID).Int("players", len(game.Players)).Msg("session started")
	return nil
}

func (h *Hub) buildEngine(game proto.PendingGame, env engine.Env) (eng engine.Engine, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine factory panic: %v", r)
		}
	}()
	if h.factory == nil {
		return nil, fmt.Errorf("no engine factory configured")
	}
	return h.factory(game, env)
}

func (h *Hub) gameWon(ctx context.Context, id, reason, winner string) {
	s := h.registry.Get(id)
	if s == nil {
		return
	}
	s.MarkFinished()

	h.log.Info().Str("session_id", id).Str("username", winner).Str("reason", reason).Msg("game won")
	h.notifier.GameWon(h.saveState(ctx, s), winner, reason)
}

// Spectator seats a spectator in a running game. Unknown games are ignored.
func (h *Hub) Spectator(ctx context.Context, req proto.SpectatorRequest) error {
	return h.do(ctx, func(runCtx context.Context) {
		s := h.registry.Get(req.Game.ID)
		if s == nil {
			return
		}
		var seated bool
		_ = h.guard(runCtx, s, func() error {
			seated = s.Watch(req.User.Username)
			return nil
		})
		if seated {
			h.project(s)
		}
	})
}

// Sync returns a summary of every live game, passwords included.
func (h *Hub) Sync(ctx context.Context) ([]proto.GameSummary, error) {
	return query(ctx, h, func(runCtx context.Context) []proto.GameSummary {
		sessions := h.registry.Sessions()
		out := make([]proto.GameSummary, 0, len(sessions))
		for _, s := range sessions {
			var summary proto.GameSummary
			_ = h.guard(runCtx, s, func() error {
				summary = s.Summary(h.node)
				return nil
			})
			if summary.ID == "" {
				continue
			}
			out = append(out, summary)
		}
		return out
	})
}

// FailedConnect handles a lobby report that a user never reached this node.
// It only applies when the user's current game on this node is gameID.
func (h *Hub) FailedConnect(ctx context.Context, req proto.FailedConnectRequest) error {
	return h.do(ctx, func(runCtx context.Context) {
		s := h.registry.FindByParticipant(req.Username)
		if s == nil || s.ID != req.GameID {
			return
		}

		_ = h.guard(runCtx, s, func() error {
			s.FailedConnect(req.Username)
			return nil
		})

		if s.IsEmpty() {
			h.closeSession(s, "failed connect")
			return
		}
		h.project(s)
	})
}

// CloseGame removes a game on the lobby's request.
func (h *Hub) CloseGame(ctx context.Context, req proto.CloseGameRequest) error {
	return h.do(ctx, func(context.Context) {
		if s := h.registry.Get(req.GameID); s != nil {
			h.closeSession(s, "closed by lobby")
		}
	})
}

// SetCardData replaces the reference data handed to engines built afterwards.
func (h *Hub) SetCardData(ctx context.Context, data proto.CardData) error {
	return h.do(ctx, func(context.Context) {
		h.cards = &data
		h.log.Info().Msg("card data updated")
	})
}

// DebugDump lists every game held by the node.
func (h *Hub) DebugDump(ctx context.Context) (proto.DebugDump, error) {
	return query(ctx, h, func(context.Context) proto.DebugDump {
		var dump proto.DebugDump
		sessions := h.registry.Sessions()
		dump.Games = make([]proto.DebugGame, 0, len(sessions))
		for _, s := range sessions {
			dump.Games = append(dump.Games, proto.DebugGame{
				Name:      s.Name,
				ID:        s.ID,
				Started:   s.Started,
				StartedAt: s.StartedAt,
				Players:   s.ParticipantSummaries(),
			})
		}
		dump.GameCount = len(dump.Games)
		return dump
	})
}
