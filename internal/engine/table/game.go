// Package table is the node's built-in rules engine: a turn-based card table
// where each player keeps a hidden hand, plays cards face up and discards
// through a card-selection prompt.
package table

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/vovakirdan/gamenode/internal/engine"
	"github.com/vovakirdan/gamenode/internal/prompt"
	"github.com/vovakirdan/gamenode/internal/proto"
)

const startingHand = 5

// ErrNoPlayers is returned when a game is initialised without seats.
var ErrNoPlayers = errors.New("no players")

type player struct {
	name    string
	deck    []*Card
	hand    []*Card
	inPlay  []*Card
	discard []*Card
	prompt  *prompt.State

	left         bool
	disconnected bool
}

func (p *player) find(zone []*Card, id string) (*Card, int) {
	for i, c := range zone {
		if c.uuid == id {
			return c, i
		}
	}
	return nil, -1
}

// Game is one table.
type Game struct {
	*engine.Log

	id         string
	name       string
	listener   engine.Listener
	catalog    catalog
	players    map[string]*player
	order      []string
	spectators []string

	active  int
	round   int
	started bool
	winner  string
	reason  string
}

// Factory builds tables for the hub.
func Factory(game proto.PendingGame, env engine.Env) (engine.Engine, error) {
	return New(game, env), nil
}

// New seats the game's players. Decks are applied with SelectDeck.
func New(game proto.PendingGame, env engine.Env) *Game {
	g := &Game{
		Log:      engine.NewLog(),
		id:       game.ID,
		name:     game.Name,
		listener: env.Listener,
		catalog:  newCatalog(env.Cards),
		players:  make(map[string]*player),
	}
	for _, p := range game.Players {
		g.players[p.Name] = &player{name: p.Name, prompt: prompt.New()}
		g.order = append(g.order, p.Name)
	}
	return g
}

// Commands implements engine.Engine.
func (g *Game) Commands() engine.CommandSet {
	return engine.CommandSet{
		"draw":        g.cmdDraw,
		"playCard":    g.cmdPlayCard,
		"discard":     g.cmdDiscard,
		"cardClicked": g.cmdCardClicked,
		"menuButton":  g.cmdMenuButton,
		"endTurn":     g.cmdEndTurn,
		"concede":     g.cmdConcede,
		"chat":        g.cmdChat,
	}
}

// SelectDeck implements engine.Engine.
func (g *Game) SelectDeck(name string, raw json.RawMessage) error {
	p := g.players[name]
	if p == nil {
		return fmt.Errorf("select deck: unknown player %s", name)
	}
	deck, err := g.catalog.buildDeck(raw)
	if err != nil {
		return fmt.Errorf("select deck for %s: %w", name, err)
	}
	p.deck = deck
	return nil
}

// Initialise implements engine.Engine.
func (g *Game) Initialise() error {
	if len(g.order) == 0 {
		return ErrNoPlayers
	}
	for _, name := range g.order {
		p := g.players[name]
		for range startingHand {
			g.draw(p)
		}
	}
	g.started = true
	g.round = 1
	g.AddMessage("%s begins round %d", g.order[g.active], g.round)
	g.promptActive()
	return nil
}

// Continue implements engine.Engine.
func (g *Game) Continue() {
	if g.winner != "" {
		return
	}
	for _, name := range g.order {
		p := g.players[name]
		if len(p.deck) == 0 && len(p.hand) == 0 && p.name == g.order[g.active] {
			g.recordWinner(g.opponentOf(name), "decked")
			return
		}
	}
}

// Watch implements engine.Engine.
func (g *Game) Watch(name string) {
	if !slices.Contains(g.spectators, name) {
		g.spectators = append(g.spectators, name)
	}
	g.AddMessage("%s has joined the game as a spectator", name)
}

// Reconnect implements engine.Engine.
func (g *Game) Reconnect(name string) {
	if p := g.players[name]; p != nil {
		p.disconnected = false
	}
	g.AddMessage("%s has reconnected", name)
}

// Disconnect implements engine.Engine.
func (g *Game) Disconnect(name string) {
	if p := g.players[name]; p != nil {
		p.disconnected = true
		g.AddMessage("%s has disconnected", name)
		return
	}
	g.removeSpectator(name)
}

// FailedConnect implements engine.Engine.
func (g *Game) FailedConnect(name string) {
	if p := g.players[name]; p != nil {
		p.disconnected = true
		g.AddMessage("%s has failed to connect to the game", name)
		return
	}
	g.removeSpectator(name)
}

// Leave implements engine.Engine.
func (g *Game) Leave(name string) {
	p := g.players[name]
	if p == nil {
		g.removeSpectator(name)
		g.AddMessage("%s has left the game", name)
		return
	}
	p.left = true
	g.AddMessage("%s has left the game", name)
	if g.started && g.winner == "" {
		if opp := g.opponentOf(name); opp != "" {
			g.recordWinner(opp, "leave")
		}
	}
}

func (g *Game) removeSpectator(name string) {
	g.spectators = slices.DeleteFunc(g.spectators, func(s string) bool { return s == name })
}

func (g *Game) opponentOf(name string) string {
	for _, n := range g.order {
		if n != name && !g.players[n].left {
			return n
		}
	}
	return ""
}

func (g *Game) recordWinner(winner, reason string) {
	if g.winner != "" {
		return
	}
	g.winner = winner
	g.reason = reason
	g.AddMessage("%s has won the game", winner)
	for _, p := range g.players {
		p.prompt.CancelPrompt()
	}
	if g.listener != nil {
		g.listener.GameWon(reason, winner)
	}
}

func (g *Game) draw(p *player) bool {
	if len(p.deck) == 0 {
		return false
	}
	p.hand = append(p.hand, p.deck[0])
	p.deck = p.deck[1:]
	return true
}

func (g *Game) isActive(name string) bool {
	return g.started && g.winner == "" && len(g.order) > 0 && g.order[g.active] == name
}

func (g *Game) promptActive() {
	for i, name := range g.order {
		p := g.players[name]
		if i == g.active {
			p.prompt.SetPrompt(prompt.Descriptor{
				MenuTitle:   "Your turn",
				PromptTitle: fmt.Sprintf("Round %d", g.round),
				Buttons: []prompt.ButtonSpec{
					{Text: "Draw", Command: "draw", DisabledFunc: func() bool { return len(p.deck) == 0 }},
					{Text: "Discard", Command: "discard", DisabledFunc: func() bool { return len(p.hand) == 0 }},
					{Text: "End turn", Command: "endTurn"},
				},
			})
			continue
		}
		p.prompt.SetPrompt(prompt.Descriptor{MenuTitle: fmt.Sprintf("Waiting for %s", g.order[g.active])})
	}
}

func argString(args []json.RawMessage, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(args[i], &s); err != nil {
		return "", false
	}
	return s, true
}

func (g *Game) cmdDraw(name string, _ []json.RawMessage) error {
	if !g.isActive(name) {
		return nil
	}
	p := g.players[name]
	if !g.draw(p) {
		g.AddMessage("%s has no cards left to draw", name)
		return nil
	}
	g.AddMessage("%s draws a card", name)
	return nil
}

func (g *Game) cmdPlayCard(name string, args []json.RawMessage) error {
	id, ok := argString(args, 0)
	if !ok || !g.isActive(name) {
		return nil
	}
	p := g.players[name]
	card, i := p.find(p.hand, id)
	if card == nil {
		return nil
	}
	p.hand = slices.Delete(p.hand, i, i+1)
	p.inPlay = append(p.inPlay, card)
	g.AddMessage("%s plays %s", name, card.name)
	return nil
}

// cmdDiscard opens a selection prompt over the player's hand.
func (g *Game) cmdDiscard(name string, _ []json.RawMessage) error {
	if !g.isActive(name) {
		return nil
	}
	p := g.players[name]
	selectable := make([]prompt.Card, 0, len(p.hand))
	for _, c := range p.hand {
		c.FacedownTarget = true
		selectable = append(selectable, c)
	}
	p.prompt.ClearSelectedCards()
	p.prompt.SetSelectableCards(selectable)
	p.prompt.SetPrompt(prompt.Descriptor{
		SelectCard:  true,
		SelectOrder: true,
		MenuTitle:   "Select cards to discard",
		PromptTitle: "Discard",
		Buttons: []prompt.ButtonSpec{
			{Text: "Done", Arg: "done", DisabledFunc: func() bool { return len(p.prompt.SelectedCards()) == 0 }},
			{Text: "Cancel", Arg: "cancel"},
		},
	})
	return nil
}

func (g *Game) cmdCardClicked(name string, args []json.RawMessage) error {
	id, ok := argString(args, 0)
	p := g.players[name]
	if !ok || p == nil || !p.prompt.SelectCard() {
		return nil
	}

	var card prompt.Card
	for _, c := range p.prompt.SelectableCards() {
		if c.UUID() == id {
			card = c
			break
		}
	}
	if card == nil {
		return nil
	}

	selected := p.prompt.SelectedCards()
	if i := slices.IndexFunc(selected, func(c prompt.Card) bool { return c.UUID() == id }); i >= 0 {
		selected = slices.Delete(selected, i, i+1)
	} else {
		selected = append(selected, card)
	}
	p.prompt.SetSelectedCards(selected)
	return nil
}

func (g *Game) cmdMenuButton(name string, args []json.RawMessage) error {
	arg, ok := argString(args, 0)
	p := g.players[name]
	if !ok || p == nil || !p.prompt.SelectCard() {
		return nil
	}

	if arg == "done" {
		for _, sc := range p.prompt.SelectedCards() {
			card, i := p.find(p.hand, sc.UUID())
			if card == nil {
				continue
			}
			p.hand = slices.Delete(p.hand, i, i+1)
			p.discard = append(p.discard, card)
			g.AddMessage("%s discards %s", name, card.name)
		}
	}

	p.prompt.ClearSelectedCards()
	p.prompt.ClearSelectableCards()
	g.promptActive()
	return nil
}

func (g *Game) cmdEndTurn(name string, _ []json.RawMessage) error {
	if !g.isActive(name) {
		return nil
	}
	g.players[name].prompt.ClearSelectableCards()
	g.players[name].prompt.ClearSelectedCards()

	for range g.order {
		g.active = (g.active + 1) % len(g.order)
		if g.active == 0 {
			g.round++
		}
		if !g.players[g.order[g.active]].left {
			break
		}
	}
	g.AddMessage("%s ends their turn", name)
	g.promptActive()
	return nil
}

func (g *Game) cmdConcede(name string, _ []json.RawMessage) error {
	if !g.started || g.winner != "" || g.players[name] == nil {
		return nil
	}
	g.AddMessage("%s concedes", name)
	if opp := g.opponentOf(name); opp != "" {
		g.recordWinner(opp, "concede")
	}
	return nil
}

func (g *Game) cmdChat(name string, args []json.RawMessage) error {
	text, ok := argString(args, 0)
	if !ok || text == "" {
		return nil
	}
	g.AddMessage("%s: %s", name, text)
	return nil
}
