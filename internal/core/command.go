package core

import "encoding/json"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandGame dispatches a named command to the session's engine.
	CommandGame CommandKind = iota
	// CommandLeaveGame removes the client's participant from its session.
	CommandLeaveGame
)

// Command represents an action requested by a client.
type Command struct {
	Kind CommandKind
	Name string
	Args []json.RawMessage
}
