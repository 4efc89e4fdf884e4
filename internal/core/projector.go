package core

import (
	"encoding/json"
	"fmt"

	"github.com/vovakirdan/gamenode/internal/proto"
	"github.com/vovakirdan/gamenode/internal/session"
)

// project pushes each live participant its own view of s. A recipient whose
// view cannot be built or whose buffer is full gets nothing this cycle.
func (h *Hub) project(s *session.Session) {
	for _, p := range s.Participants() {
		if !p.Live() {
			continue
		}

		data, err := h.view(s, p.Name)
		if err != nil {
			h.metrics.Faults.Inc()
			h.log.Error().Err(err).Str("session_id", s.ID).Str("username", p.Name).Msg("build projection")
			continue
		}
		if !p.Conn.Push(proto.OutboundTypeGameState, data) {
			h.log.Warn().Str("session_id", s.ID).Str("username", p.Name).Msg("projection dropped")
		}
	}
}

func (h *Hub) view(s *session.Session, viewer string) (data json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("state for %s: panic: %v", viewer, r)
		}
	}()

	return json.Marshal(s.Engine().State(viewer))
}
