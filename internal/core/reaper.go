package core

import "context"

// Sweep runs one reaper pass immediately.
func (h *Hub) Sweep(ctx context.Context) error {
	return h.do(ctx, func(context.Context) {
		h.sweep()
	})
}

// sweep closes sessions that finished more than the retention window ago.
func (h *Hub) sweep() {
	now := h.now()
	for _, s := range h.registry.Sessions() {
		if s.FinishedAt.IsZero() || now.Sub(s.FinishedAt) <= h.retention {
			continue
		}
		h.metrics.Reaped.Inc()
		h.closeSession(s, "stale")
	}
}
