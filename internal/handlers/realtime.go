package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tablecast/tablecast/internal/realtime"
	"github.com/tablecast/tablecast/internal/store"
)

// RealtimeHandler attaches websocket subscribers to the state hub.
type RealtimeHandler struct {
	store *store.SessionStore
	hub   *realtime.Hub
}

func NewRealtimeHandler(sessions *store.SessionStore, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{store: sessions, hub: hub}
}

// Stream upgrades GET /ws/:session_id. Unknown sessions are closed with an
// application close code so clients can distinguish "gone" from network loss.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	session, err := h.store.Get(c.Param("session_id"))
	if err != nil {
		h.hub.Reject(c.Writer, c.Request)
		return
	}

	h.hub.Serve(session.ID, session, c.Writer, c.Request)
}
