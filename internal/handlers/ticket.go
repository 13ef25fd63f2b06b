package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TicketIssuer creates single-use websocket handshake tickets.
type TicketIssuer interface {
	IssueTicket(ctx context.Context, username string) (string, error)
}

// TicketHandler exposes handshake ticket issuance.
type TicketHandler struct {
	issuer TicketIssuer
}

// NewTicketHandler builds a TicketHandler.
func NewTicketHandler(issuer TicketIssuer) *TicketHandler {
	return &TicketHandler{issuer: issuer}
}

// CreateTicket issues a ticket for the authenticated user. The client passes
// it as the ticket query parameter when opening the websocket.
func (h *TicketHandler) CreateTicket(c *gin.Context) {
	username := c.GetString("username")

	ticket, err := h.issuer.IssueTicket(c.Request.Context(), username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue ticket"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ticket": ticket})
}
