package table

import (
	"github.com/vovakirdan/gamenode/internal/engine"
	"github.com/vovakirdan/gamenode/internal/prompt"
)

type cardView struct {
	cardSummary
	Selectable     bool `json:"selectable,omitempty"`
	Selected       bool `json:"selected,omitempty"`
	Order          int  `json:"order,omitempty"`
	FacedownTarget bool `json:"facedownTarget,omitempty"`
}

type playerView struct {
	Name         string       `json:"name"`
	Disconnected bool         `json:"disconnected,omitempty"`
	Left         bool         `json:"left,omitempty"`
	DeckSize     int          `json:"deckSize"`
	HandSize     int          `json:"handSize"`
	Hand         []cardView   `json:"hand,omitempty"`
	InPlay       []cardView   `json:"inPlay"`
	Discard      []cardView   `json:"discard"`
	Prompt       *prompt.View `json:"prompt,omitempty"`
}

type stateView struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Round      int              `json:"round"`
	Active     string           `json:"activePlayer,omitempty"`
	Winner     string           `json:"winner,omitempty"`
	WinReason  string           `json:"winReason,omitempty"`
	Players    []playerView     `json:"players"`
	Spectators []string         `json:"spectators"`
	Messages   []engine.Message `json:"messages"`
}

func (g *Game) activeName() string {
	if !g.started || len(g.order) == 0 {
		return ""
	}
	return g.order[g.active]
}

func (g *Game) cards(p *player, zone []*Card) []cardView {
	out := make([]cardView, 0, len(zone))
	for _, c := range zone {
		sel := p.prompt.CardSelectionState(c)
		out = append(out, cardView{
			cardSummary:    c.summary(),
			Selectable:     sel.Selectable,
			Selected:       sel.Selected,
			Order:          sel.Order,
			FacedownTarget: c.FacedownTarget,
		})
	}
	return out
}

// renderPlayer renders p; the hand and prompt are only included when owner is set.
func (g *Game) renderPlayer(p *player, owner bool) playerView {
	v := playerView{
		Name:         p.name,
		Disconnected: p.disconnected,
		Left:         p.left,
		DeckSize:     len(p.deck),
		HandSize:     len(p.hand),
		InPlay:       g.cards(p, p.inPlay),
		Discard:      g.cards(p, p.discard),
	}
	if owner {
		v.Hand = g.cards(p, p.hand)
		view := p.prompt.View()
		v.Prompt = &view
	}
	return v
}

func (g *Game) render(viewer string, full bool) stateView {
	s := stateView{
		ID:         g.id,
		Name:       g.name,
		Round:      g.round,
		Active:     g.activeName(),
		Winner:     g.winner,
		WinReason:  g.reason,
		Players:    make([]playerView, 0, len(g.order)),
		Spectators: append([]string{}, g.spectators...),
		Messages:   g.Messages(),
	}
	for _, name := range g.order {
		s.Players = append(s.Players, g.renderPlayer(g.players[name], full || name == viewer))
	}
	return s
}

// State implements engine.Engine. Only the viewer's own hand and prompt are
// rendered.
func (g *Game) State(viewer string) any {
	return g.render(viewer, false)
}

// FullState implements engine.Engine.
func (g *Game) FullState() any {
	return g.render("", true)
}

// PlayerState implements engine.Engine.
func (g *Game) PlayerState(name string) any {
	p := g.players[name]
	if p == nil {
		return nil
	}
	return g.renderPlayer(p, true)
}

type savedPlayer struct {
	Name    string   `json:"name"`
	Deck    []string `json:"deck"`
	Hand    []string `json:"hand"`
	InPlay  []string `json:"inPlay"`
	Discard []string `json:"discard"`
	Left    bool     `json:"left,omitempty"`
}

type savedGame struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Round     int           `json:"round"`
	Winner    string        `json:"winner,omitempty"`
	WinReason string        `json:"winReason,omitempty"`
	Players   []savedPlayer `json:"players"`
}

func codes(zone []*Card) []string {
	out := make([]string, 0, len(zone))
	for _, c := range zone {
		out = append(out, c.code)
	}
	return out
}

// SaveState implements engine.Engine.
func (g *Game) SaveState() any {
	s := savedGame{
		ID:        g.id,
		Name:      g.name,
		Round:     g.round,
		Winner:    g.winner,
		WinReason: g.reason,
		Players:   make([]savedPlayer, 0, len(g.order)),
	}
	for _, name := range g.order {
		p := g.players[name]
		s.Players = append(s.Players, savedPlayer{
			Name:    p.name,
			Deck:    codes(p.deck),
			Hand:    codes(p.hand),
			InPlay:  codes(p.inPlay),
			Discard: codes(p.discard),
			Left:    p.left,
		})
	}
	return s
}

type summary struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Started    bool     `json:"started"`
	Round      int      `json:"round"`
	Players    []string `json:"players"`
	Spectators int      `json:"spectators"`
	Winner     string   `json:"winner,omitempty"`
	Active     string   `json:"activePlayer,omitempty"`
}

// Summary implements engine.Engine. The full form also names the active player.
func (g *Game) Summary(full bool) any {
	s := summary{
		ID:         g.id,
		Name:       g.name,
		Started:    g.started,
		Round:      g.round,
		Players:    append([]string{}, g.order...),
		Spectators: len(g.spectators),
		Winner:     g.winner,
	}
	if full {
		s.Active = g.activeName()
	}
	return s
}
