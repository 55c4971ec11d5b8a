package handlers

import (
	"errors"
	"net/http"

	"maplive-service/internal/hub"
	"maplive-service/internal/models"
	"maplive-service/internal/services"

	"github.com/gin-gonic/gin"
)

// TicketHandler serves the REST side of support tickets and mirrors every
// lifecycle change into the ticket's hub room, so clients watching the
// thread live see creates, edits, replies and closes without polling.
type TicketHandler struct {
	tickets services.TicketService
	liveHub *hub.Hub
}

func NewTicketHandler(tickets services.TicketService, liveHub *hub.Hub) *TicketHandler {
	return &TicketHandler{tickets: tickets, liveHub: liveHub}
}

func ticketRoom(ticketID string) string {
	return "ticket:" + ticketID
}

func (h *TicketHandler) Create(c *gin.Context) {
	var req models.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input data"})
		return
	}

	ticket, err := h.tickets.Create(c.Request.Context(), c.GetString("user_id"), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create ticket failed"})
		return
	}

	h.liveHub.BroadcastToRoom(ticketRoom(ticket.ID), hub.EventTicketCreated, map[string]any{
		"ticketId": ticket.ID,
		"subject":  ticket.Subject,
		"status":   ticket.Status,
	})
	c.JSON(http.StatusCreated, ticket)
}

func (h *TicketHandler) Get(c *gin.Context) {
	ticket, err := h.tickets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) List(c *gin.Context) {
	tickets, err := h.tickets.ListByUser(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list tickets failed"})
		return
	}
	c.JSON(http.StatusOK, tickets)
}

func (h *TicketHandler) Update(c *gin.Context) {
	var req models.UpdateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input data"})
		return
	}

	ticket, err := h.tickets.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		if errors.Is(err, services.ErrTicketNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update ticket failed"})
		return
	}

	h.liveHub.BroadcastToRoom(ticketRoom(ticket.ID), hub.EventTicketUpdated, map[string]any{
		"ticketId": ticket.ID,
		"subject":  ticket.Subject,
		"status":   ticket.Status,
	})
	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) Reply(c *gin.Context) {
	var req models.ReplyTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input data"})
		return
	}

	reply, err := h.tickets.Reply(c.Request.Context(), c.Param("id"), c.GetString("user_id"), &req)
	if err != nil {
		if errors.Is(err, services.ErrTicketNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reply failed"})
		return
	}

	h.liveHub.BroadcastToRoom(ticketRoom(reply.TicketID), hub.EventTicketReply, map[string]any{
		"ticketId": reply.TicketID,
		"replyId":  reply.ID,
		"author":   reply.AuthorID,
		"text":     reply.Body,
	})
	c.JSON(http.StatusCreated, reply)
}

func (h *TicketHandler) Close(c *gin.Context) {
	ticket, err := h.tickets.Close(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
		return
	}

	room := ticketRoom(ticket.ID)
	h.liveHub.BroadcastToRoom(room, hub.EventTicketStatusChanged, map[string]any{
		"ticketId": ticket.ID,
		"status":   ticket.Status,
	})
	h.liveHub.BroadcastToRoom(room, hub.EventTicketClosed, map[string]any{
		"ticketId": ticket.ID,
	})
	c.Status(http.StatusNoContent)
}
