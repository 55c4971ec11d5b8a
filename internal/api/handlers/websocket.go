package handlers

import (
	"log/slog"

	"maplive-service/internal/hub"
	"maplive-service/internal/services"

	"github.com/gin-gonic/gin"
)

type WSHandler struct {
	hub      *hub.Hub
	presence services.PresenceService
}

func NewWSHandler(h *hub.Hub, presence services.PresenceService) *WSHandler {
	return &WSHandler{hub: h, presence: presence}
}

func (h *WSHandler) serve(c *gin.Context, kind hub.Kind) {
	userID := c.GetString("user_id")
	if userID != "" && h.presence != nil {
		// The key carries a TTL, so a dead connection goes offline on its
		// own without an explicit disconnect hook.
		if err := h.presence.MarkOnline(c.Request.Context(), userID); err != nil {
			slog.Warn("presence mark failed", "user", userID, "error", err)
		}
	}
	h.hub.ServeWS(c.Writer, c.Request, kind, userID, c.GetString("username"))
}

func (h *WSHandler) HandleSession(c *gin.Context) {
	h.serve(c, hub.KindSession)
}

func (h *WSHandler) HandleGroupCollaboration(c *gin.Context) {
	h.serve(c, hub.KindGroup)
}

func (h *WSHandler) HandleSupportTickets(c *gin.Context) {
	h.serve(c, hub.KindTicket)
}

func (h *WSHandler) HandleNotifications(c *gin.Context) {
	h.serve(c, hub.KindNotifications)
}
