package http

import (
	"encoding/json"
	"testing"

	"github.com/vovakirdan/gamenode/internal/core"
	"github.com/vovakirdan/gamenode/internal/proto"
)

func TestInboundToCommand(t *testing.T) {
	args := []json.RawMessage{json.RawMessage(`"01001"`), json.RawMessage(`2`)}

	tests := []struct {
		name    string
		inbound proto.Inbound
		want    *core.Command
	}{
		{
			name:    "game command",
			inbound: proto.Inbound{Type: "game", Command: "cardClicked", Args: args},
			want:    &core.Command{Kind: core.CommandGame, Name: "cardClicked", Args: args},
		},
		{
			name:    "leave as game command",
			inbound: proto.Inbound{Type: "game", Command: "leavegame"},
			want:    &core.Command{Kind: core.CommandLeaveGame},
		},
		{
			name:    "leave event",
			inbound: proto.Inbound{Type: "leavegame"},
			want:    &core.Command{Kind: core.CommandLeaveGame},
		},
		{name: "missing command", inbound: proto.Inbound{Type: "game"}},
		{name: "unknown type", inbound: proto.Inbound{Type: "chat", Command: "hello"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := inboundToCommand(tt.inbound)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %+v", got)
				}
				return
			}
			if got == nil || got.Kind != tt.want.Kind || got.Name != tt.want.Name || len(got.Args) != len(tt.want.Args) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
