// Package bus connects the node to the lobby over a message bus.
//
// Lobby requests arrive on per-node subjects and are forwarded to the hub.
// Session lifecycle events go back to the lobby as envelopes stamped with the
// node identity. Outbound delivery is best effort and never retried.
package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamenode/internal/metrics"
	"github.com/vovakirdan/gamenode/internal/proto"
	"github.com/vovakirdan/gamenode/internal/store"
)

// Lobby is the node-side surface for lobby requests.
type Lobby interface {
	StartGame(ctx context.Context, game proto.PendingGame) error
	Spectator(ctx context.Context, req proto.SpectatorRequest) error
	Sync(ctx context.Context) ([]proto.GameSummary, error)
	FailedConnect(ctx context.Context, req proto.FailedConnectRequest) error
	CloseGame(ctx context.Context, req proto.CloseGameRequest) error
	SetCardData(ctx context.Context, data proto.CardData) error
}

// Publisher sends raw bytes on a subject. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Options configures a Gateway.
type Options struct {
	// Node is the identity stamped on outbound envelopes and used in inbound subjects.
	Node string
	// LobbySubject prefixes outbound subjects: <LobbySubject>.<EVENT>.
	LobbySubject string
	Hello        proto.Hello
	// Cards persists card data. Optional.
	Cards   store.CardStore
	Metrics *metrics.Metrics
}

// Gateway translates between bus messages and the hub.
type Gateway struct {
	log     *zerolog.Logger
	pub     Publisher
	lobby   Lobby
	opts    Options
	metrics *metrics.Metrics
}

// New builds a gateway. pub may be set later with SetPublisher.
func New(pub Publisher, lobby Lobby, opts Options, logger *zerolog.Logger) *Gateway {
	l := logger.With().Str("component", "bus").Logger()
	m := opts.Metrics
	if m == nil {
		m = metrics.Nop()
	}
	return &Gateway{log: &l, pub: pub, lobby: lobby, opts: opts, metrics: m}
}

// SetPublisher replaces the outbound publisher.
func (g *Gateway) SetPublisher(pub Publisher) {
	g.pub = pub
}

// SetLobby replaces the hub requests are forwarded to.
func (g *Gateway) SetLobby(lobby Lobby) {
	g.lobby = lobby
}

// Handle processes one inbound lobby message. The returned bytes, if any,
// are the reply to send back.
func (g *Gateway) Handle(ctx context.Context, topic string, data []byte) ([]byte, error) {
	g.metrics.BusMessages.WithLabelValues("in", topic).Inc()

	switch topic {
	case proto.TopicStartGame:
		var game proto.PendingGame
		if err := json.Unmarshal(data, &game); err != nil {
			return nil, fmt.Errorf("decode %s: %w", topic, err)
		}
		return nil, g.lobby.StartGame(ctx, game)

	case proto.TopicSpectator:
		var req proto.SpectatorRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", topic, err)
		}
		return nil, g.lobby.Spectator(ctx, req)

	case proto.TopicGameSync:
		games, err := g.lobby.Sync(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(games)

	case proto.TopicFailedConnect:
		var req proto.FailedConnectRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", topic, err)
		}
		return nil, g.lobby.FailedConnect(ctx, req)

	case proto.TopicCloseGame:
		var req proto.CloseGameRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", topic, err)
		}
		return nil, g.lobby.CloseGame(ctx, req)

	case proto.TopicCardData:
		var cards proto.CardData
		if err := json.Unmarshal(data, &cards); err != nil {
			return nil, fmt.Errorf("decode %s: %w", topic, err)
		}
		if g.opts.Cards != nil {
			if err := g.opts.Cards.SaveCardData(ctx, cards); err != nil {
				g.log.Warn().Err(err).Msg("persist card data")
			}
		}
		return nil, g.lobby.SetCardData(ctx, cards)

	default:
		g.log.Debug().Str("topic", topic).Msg("unknown bus topic ignored")
		return nil, nil
	}
}

// Hello announces the node to the lobby.
func (g *Gateway) Hello() {
	g.publish(proto.EventHello, g.opts.Hello)
}

// GameClosed implements core.Notifier.
func (g *Gateway) GameClosed(gameID string) {
	g.publish(proto.EventGameClosed, proto.GameClosed{Game: gameID})
}

// GameWon implements core.Notifier.
func (g *Gateway) GameWon(game any, winner, reason string) {
	g.publish(proto.EventGameWin, proto.GameWin{Game: game, Winner: winner, Reason: reason})
}

// PlayerLeft implements core.Notifier.
func (g *Gateway) PlayerLeft(gameID string, game any, player string, spectator bool) {
	g.publish(proto.EventPlayerLeft, proto.PlayerLeft{
		GameID:    gameID,
		Game:      game,
		Player:    player,
		Spectator: spectator,
	})
}

// Subject returns the outbound subject for an event.
func (g *Gateway) Subject(event string) string {
	return g.opts.LobbySubject + "." + event
}

func (g *Gateway) publish(event string, data any) {
	if g.pub == nil {
		return
	}

	payload, err := json.Marshal(proto.BusEnvelope{Node: g.opts.Node, Command: event, Data: data})
	if err != nil {
		g.log.Error().Err(err).Str("command", event).Msg("encode bus event")
		return
	}
	if err := g.pub.Publish(g.Subject(event), payload); err != nil {
		g.log.Warn().Err(err).Str("command", event).Msg("publish bus event")
		return
	}
	g.metrics.BusMessages.WithLabelValues("out", event).Inc()
}
