// Package prompt holds the per-player interactive selection view.
//
// A State is replaced wholesale by SetPrompt; the selectable and selected card
// lists are managed independently of the prompt chrome.
package prompt

import "slices"

// Card is the subset of a card a prompt needs.
type Card interface {
	UUID() string
	Name() string
	Type() string
	// ShortSummary is the compact descriptor rendered on card buttons.
	ShortSummary() any
	// Selected reports the card's own ad-hoc selection flag (plot selection).
	Selected() bool
	HideFacedownTarget()
}

// Card types that show a face-down target indicator while selectable.
var facedownTargetTypes = []string{"attachment", "character", "event", "location"}

// ButtonSpec describes a button when setting a prompt.
// When Card is set, the button is expanded into a card descriptor at set time.
type ButtonSpec struct {
	Text     string
	Arg      string
	Command  string
	Method   string
	Card     Card
	Disabled bool
	// DisabledFunc, when set, is evaluated every time the state is rendered.
	DisabledFunc func() bool
}

// Button is a rendered button.
type Button struct {
	Text     string `json:"text"`
	Arg      string `json:"arg,omitempty"`
	Command  string `json:"command,omitempty"`
	Method   string `json:"method,omitempty"`
	Card     any    `json:"card,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`

	disabledFunc func() bool
}

// Control is a free-form prompt control passed through to the client.
type Control struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// Descriptor is the input of SetPrompt. Absent fields reset to defaults.
type Descriptor struct {
	SelectCard  bool
	SelectOrder bool
	MenuTitle   string
	PromptTitle string
	Buttons     []ButtonSpec
	Controls    []Control
}

// SelectionState is how a single card renders under the current prompt.
// Order is the 1-based position in the selected list and is only set when
// selection order matters.
type SelectionState struct {
	Selected     bool `json:"selected"`
	Selectable   bool `json:"selectable"`
	Unselectable bool `json:"unselectable"`
	Order        int  `json:"order,omitempty"`
}

// View is the serialisable prompt.
type View struct {
	SelectCard  bool      `json:"selectCard"`
	SelectOrder bool      `json:"selectOrder"`
	MenuTitle   string    `json:"menuTitle"`
	PromptTitle string    `json:"promptTitle"`
	Buttons     []Button  `json:"buttons"`
	Controls    []Control `json:"controls"`
}

// State is one player's prompt.
type State struct {
	selectCard  bool
	selectOrder bool
	menuTitle   string
	promptTitle string
	buttons     []Button
	controls    []Control

	selectableCards []Card
	selectedCards   []Card
}

// New returns an empty prompt.
func New() *State {
	return &State{
		buttons:  []Button{},
		controls: []Control{},
	}
}

// SetPrompt replaces the active prompt. Prompts are never merged.
func (s *State) SetPrompt(d Descriptor) {
	s.selectCard = d.SelectCard
	s.selectOrder = d.SelectOrder
	s.menuTitle = d.MenuTitle
	s.promptTitle = d.PromptTitle

	s.buttons = make([]Button, 0, len(d.Buttons))
	for _, spec := range d.Buttons {
		s.buttons = append(s.buttons, expandButton(spec))
	}

	s.controls = []Control{}
	if d.Controls != nil {
		s.controls = slices.Clone(d.Controls)
	}
}

func expandButton(spec ButtonSpec) Button {
	b := Button{
		Text:         spec.Text,
		Arg:          spec.Arg,
		Command:      spec.Command,
		Method:       spec.Method,
		Disabled:     spec.Disabled,
		disabledFunc: spec.DisabledFunc,
	}
	if spec.Card != nil {
		if b.Text == "" {
			b.Text = spec.Card.Name()
		}
		if b.Arg == "" {
			b.Arg = spec.Card.UUID()
		}
		b.Card = spec.Card.ShortSummary()
	}
	return b
}

// CancelPrompt clears the modal chrome but leaves both card lists untouched.
func (s *State) CancelPrompt() {
	s.selectCard = false
	s.menuTitle = ""
	s.promptTitle = ""
	s.buttons = []Button{}
	s.controls = []Control{}
}

// SetSelectableCards replaces the selectable card list.
func (s *State) SetSelectableCards(cards []Card) {
	s.selectableCards = slices.Clone(cards)
}

// ClearSelectableCards empties the selectable list and tells each formerly
// selectable in-play card to stop showing its face-down target indicator.
func (s *State) ClearSelectableCards() {
	for _, card := range s.selectableCards {
		if slices.Contains(facedownTargetTypes, card.Type()) {
			card.HideFacedownTarget()
		}
	}
	s.selectableCards = nil
}

// SetSelectedCards replaces the selected card list. Order is significant.
func (s *State) SetSelectedCards(cards []Card) {
	s.selectedCards = slices.Clone(cards)
}

// ClearSelectedCards empties the selected card list.
func (s *State) ClearSelectedCards() {
	s.selectedCards = nil
}

// SelectableCards returns a copy of the selectable list.
func (s *State) SelectableCards() []Card {
	return slices.Clone(s.selectableCards)
}

// SelectedCards returns a copy of the selected list.
func (s *State) SelectedCards() []Card {
	return slices.Clone(s.selectedCards)
}

// SelectCard reports whether card selection is active.
func (s *State) SelectCard() bool {
	return s.selectCard
}

// CardSelectionState reports how card renders under the current prompt.
func (s *State) CardSelectionState(card Card) SelectionState {
	selectable := slices.Contains(s.selectableCards, card)
	index := slices.Index(s.selectedCards, card)

	result := SelectionState{
		Selected:     card.Selected() || index != -1,
		Selectable:   selectable,
		Unselectable: s.selectCard && !selectable,
	}
	if index != -1 && s.selectOrder {
		result.Order = index + 1
	}
	return result
}

// View renders the prompt, evaluating dynamic disabled predicates now.
func (s *State) View() View {
	buttons := make([]Button, 0, len(s.buttons))
	for _, b := range s.buttons {
		if b.disabledFunc != nil {
			b.Disabled = b.disabledFunc()
		}
		buttons = append(buttons, b)
	}

	return View{
		SelectCard:  s.selectCard,
		SelectOrder: s.selectOrder,
		MenuTitle:   s.menuTitle,
		PromptTitle: s.promptTitle,
		Buttons:     buttons,
		Controls:    slices.Clone(s.controls),
	}
}
