package handlers

import (
	"net/http"

	"maplive-service/internal/services"

	"github.com/gin-gonic/gin"
)

type PresenceHandler struct {
	presence services.PresenceService
}

func NewPresenceHandler(presence services.PresenceService) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

// Get reports whether a user currently holds an open hub connection.
func (h *PresenceHandler) Get(c *gin.Context) {
	if h.presence == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "presence tracking is not configured"})
		return
	}

	online, err := h.presence.IsOnline(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "presence lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": c.Param("id"), "online": online})
}
