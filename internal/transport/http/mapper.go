package http

import (
	"github.com/vovakirdan/gamenode/internal/core"
	"github.com/vovakirdan/gamenode/internal/proto"
)

// inboundToCommand maps a client envelope to a hub command. Envelopes that do
// not name a command map to nil and are ignored.
func inboundToCommand(inbound proto.Inbound) *core.Command {
	switch inbound.Type {
	case proto.CommandLeaveGame:
		return &core.Command{Kind: core.CommandLeaveGame}
	case proto.InboundTypeGame:
		switch inbound.Command {
		case "":
			return nil
		case proto.CommandLeaveGame:
			return &core.Command{Kind: core.CommandLeaveGame}
		default:
			return &core.Command{
				Kind: core.CommandGame,
				Name: inbound.Command,
				Args: inbound.Args,
			}
		}
	default:
		return nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	return proto.Outbound{Type: event.Type, Data: event.Data}
}
