package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
//
// A game command arrives as {"type":"game","command":"playCard","args":[...]}.
type Inbound struct {
	Type    string            `json:"type"`
	Command string            `json:"command,omitempty"`
	Args    []json.RawMessage `json:"args,omitempty"`
}

const (
	InboundTypeGame = "game"

	// CommandLeaveGame is reserved and handled by the gateway, never by an engine.
	CommandLeaveGame = "leavegame"

	OutboundTypeGameState      = "gamestate"
	OutboundTypeClearGameState = "cleargamestate"
)

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}
