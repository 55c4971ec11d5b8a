package handlers

import (
	"net/http"

	"maplive-service/internal/services"

	"github.com/gin-gonic/gin"
)

type StandingsHandler struct {
	standings services.StandingsService
}

func NewStandingsHandler(standings services.StandingsService) *StandingsHandler {
	return &StandingsHandler{standings: standings}
}

// Get returns a session's current score ranking from the hub's Redis
// mirror. Sessions that never scored anyone get an empty list.
func (h *StandingsHandler) Get(c *gin.Context) {
	if h.standings == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "standings are not configured"})
		return
	}

	standings, err := h.standings.Standings(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "standings lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": c.Param("id"), "standings": standings})
}
