package handlers

import (
	"errors"
	"net/http"

	"maplive-service/internal/models"
	"maplive-service/internal/services"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessions services.SessionService
}

func NewSessionHandler(sessions services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) Create(c *gin.Context) {
	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input data"})
		return
	}

	resp, err := h.sessions.Create(c.Request.Context(), c.GetString("user_id"), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create session failed"})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *SessionHandler) Get(c *gin.Context) {
	resp, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Lookup resolves a join code to its session. Public so guests can find
// the room they were invited to before opening the hub connection.
func (h *SessionHandler) Lookup(c *gin.Context) {
	resp, err := h.sessions.GetByJoinCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) List(c *gin.Context) {
	resp, err := h.sessions.ListByOwner(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list sessions failed"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) Start(c *gin.Context) {
	resp, err := h.sessions.Start(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		h.writeSessionError(c, err, "start session failed")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) End(c *gin.Context) {
	resp, err := h.sessions.End(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		h.writeSessionError(c, err, "end session failed")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.GetString("user_id"), c.Param("id")); err != nil {
		h.writeSessionError(c, err, "delete session failed")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) writeSessionError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, services.ErrNotSessionOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "not the session owner"})
	case errors.Is(err, services.ErrSessionEnded):
		c.JSON(http.StatusConflict, gin.H{"error": "session has ended"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
