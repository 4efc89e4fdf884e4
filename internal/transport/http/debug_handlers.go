package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamenode/internal/core"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DebugHandlers exposes the node's live games for operators.
type DebugHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewDebugHandlers creates a new debug handlers instance.
func NewDebugHandlers(hub *core.Hub, logger *zerolog.Logger) *DebugHandlers {
	return &DebugHandlers{hub: hub, log: logger}
}

// Sessions lists every game on the node.
// GET /debug/sessions
func (h *DebugHandlers) Sessions(c *gin.Context) {
	dump, err := h.hub.DebugDump(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to dump sessions")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "hub unavailable"})
		return
	}
	c.JSON(http.StatusOK, dump)
}
