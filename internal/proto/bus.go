package proto

import (
	"encoding/json"
	"time"
)

// Lobby -> node topics.
const (
	TopicStartGame     = "onStartGame"
	TopicSpectator     = "onSpectator"
	TopicGameSync      = "onGameSync"
	TopicFailedConnect = "onFailedConnect"
	TopicCloseGame     = "onCloseGame"
	TopicCardData      = "onCardData"
)

// Node -> lobby events.
const (
	EventHello      = "HELLO"
	EventGameClosed = "GAMECLOSED"
	EventGameWin    = "GAMEWIN"
	EventPlayerLeft = "PLAYERLEFT"
)

// PendingGame is the descriptor the lobby sends when a game should start.
type PendingGame struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Owner      string          `json:"owner"`
	Password   string          `json:"password,omitempty"`
	GameType   string          `json:"gameType,omitempty"`
	Players    []PendingPlayer `json:"players"`
	Spectators []PendingPlayer `json:"spectators,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// PendingPlayer is a seat reserved by the lobby. ID is the lobby-side connection id.
type PendingPlayer struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Deck json.RawMessage `json:"deck,omitempty"`
}

// User identifies a lobby user.
type User struct {
	Username string `json:"username"`
}

// SpectatorRequest asks the node to seat a spectator in a running game.
type SpectatorRequest struct {
	Game PendingGame `json:"game"`
	User User        `json:"user"`
}

// FailedConnectRequest reports that a user never reached this node.
type FailedConnectRequest struct {
	GameID   string `json:"gameId"`
	Username string `json:"username"`
}

// CloseGameRequest asks the node to drop a game.
type CloseGameRequest struct {
	GameID string `json:"gameId"`
}

// CardData is the reference data shared by all new games.
type CardData struct {
	TitleCardData      json.RawMessage `json:"titleCardData,omitempty"`
	CardData           json.RawMessage `json:"cardData,omitempty"`
	PackData           json.RawMessage `json:"packData,omitempty"`
	RestrictedListData json.RawMessage `json:"restrictedListData,omitempty"`
}

// Hello announces the node to the lobby.
type Hello struct {
	Identity string `json:"identity"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
	Version  string `json:"version"`
	MaxGames int    `json:"maxGames"`
}

// GameClosed tells the lobby a game no longer exists on this node.
type GameClosed struct {
	Game string `json:"game"`
}

// GameWin carries the final save state and winner.
type GameWin struct {
	Game   any    `json:"game"`
	Winner string `json:"winner"`
	Reason string `json:"reason"`
}

// PlayerLeft tells the lobby a participant left a game.
type PlayerLeft struct {
	GameID    string `json:"gameId"`
	Game      any    `json:"game"`
	Player    string `json:"player"`
	Spectator bool   `json:"spectator"`
}

// BusEnvelope wraps every node -> lobby event with the sending node's identity.
type BusEnvelope struct {
	Node    string `json:"node"`
	Command string `json:"command"`
	Data    any    `json:"data,omitempty"`
}

// GameSummary is the lobby-facing view of one live game.
type GameSummary struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Owner     string               `json:"owner"`
	Password  string               `json:"password,omitempty"`
	Started   bool                 `json:"started"`
	StartedAt time.Time            `json:"startedAt,omitzero"`
	Node      string               `json:"node,omitempty"`
	Players   []ParticipantSummary `json:"players"`
	Details   any                  `json:"details,omitempty"`
}

// ParticipantSummary describes one seat in a GameSummary or debug dump.
type ParticipantSummary struct {
	Name         string `json:"name"`
	ID           string `json:"id"`
	Left         bool   `json:"left"`
	Disconnected bool   `json:"disconnected"`
	Spectator    bool   `json:"spectator"`
}

// DebugDump lists every game held by the node.
type DebugDump struct {
	Games     []DebugGame `json:"games"`
	GameCount int         `json:"gameCount"`
}

// DebugGame is one entry of DebugDump.
type DebugGame struct {
	Name      string               `json:"name"`
	ID        string               `json:"id"`
	Started   bool                 `json:"started"`
	StartedAt time.Time            `json:"startedAt,omitzero"`
	Players   []ParticipantSummary `json:"players"`
}
