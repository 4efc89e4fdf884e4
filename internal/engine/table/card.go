package table

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/vovakirdan/gamenode/internal/proto"
)

// Card is one physical card in a game.
type Card struct {
	uuid     string
	code     string
	name     string
	cardType string
	selected bool

	// FacedownTarget is shown while the card is a hidden target of a selection.
	FacedownTarget bool
}

// UUID implements prompt.Card.
func (c *Card) UUID() string { return c.uuid }

// Name implements prompt.Card.
func (c *Card) Name() string { return c.name }

// Type implements prompt.Card.
func (c *Card) Type() string { return c.cardType }

// Selected implements prompt.Card.
func (c *Card) Selected() bool { return c.selected }

// HideFacedownTarget implements prompt.Card.
func (c *Card) HideFacedownTarget() { c.FacedownTarget = false }

// ShortSummary implements prompt.Card.
func (c *Card) ShortSummary() any {
	return cardSummary{Code: c.code, Name: c.name, Type: c.cardType, UUID: c.uuid}
}

type cardSummary struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Type string `json:"type"`
	UUID string `json:"uuid"`
}

func (c *Card) summary() cardSummary {
	return c.ShortSummary().(cardSummary)
}

// deckList is the deck shape sent by the lobby.
type deckList struct {
	Cards []struct {
		Code  string `json:"code"`
		Count int    `json:"count"`
	} `json:"cards"`
}

type cardInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// catalog resolves card codes against the lobby's card data.
type catalog map[string]cardInfo

func newCatalog(data *proto.CardData) catalog {
	c := catalog{}
	if data == nil || len(data.CardData) == 0 {
		return c
	}
	// Unknown shapes leave the catalog empty; codes then render as names.
	_ = json.Unmarshal(data.CardData, &c)
	return c
}

func (c catalog) card(code string) *Card {
	info, ok := c[code]
	if !ok {
		info = cardInfo{Name: code, Type: "character"}
	}
	return &Card{
		uuid:     uuid.NewString(),
		code:     code,
		name:     info.Name,
		cardType: info.Type,
	}
}

const defaultDeckSize = 20

// buildDeck expands a deck list. An empty deck yields a generic starter deck.
func (c catalog) buildDeck(raw json.RawMessage) ([]*Card, error) {
	if len(raw) == 0 || string(raw) == "null" {
		deck := make([]*Card, 0, defaultDeckSize)
		for i := range defaultDeckSize {
			deck = append(deck, &Card{
				uuid:     uuid.NewString(),
				code:     fmt.Sprintf("starter-%02d", i+1),
				name:     fmt.Sprintf("Starter %d", i+1),
				cardType: "character",
			})
		}
		return deck, nil
	}

	var list deckList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode deck: %w", err)
	}
	var deck []*Card
	for _, entry := range list.Cards {
		count := entry.Count
		if count <= 0 {
			count = 1
		}
		for range count {
			deck = append(deck, c.card(entry.Code))
		}
	}
	return deck, nil
}
