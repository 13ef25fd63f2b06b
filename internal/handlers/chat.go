package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-service/internal/ws"
)

// ChatHandler exposes the REST mirror of the coordinator's chat operations.
type ChatHandler struct {
	coordinator *ws.Coordinator
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(coordinator *ws.Coordinator) *ChatHandler {
	return &ChatHandler{coordinator: coordinator}
}

// statusForError maps coordinator failures to HTTP statuses.
func statusForError(err error) (int, string) {
	var domainErr *ws.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError, "internal server error"
	}

	switch domainErr.Code {
	case ws.CodeValidation:
		return http.StatusBadRequest, domainErr.Message
	case ws.CodeNotFound:
		return http.StatusNotFound, domainErr.Message
	case ws.CodeAuthorization:
		return http.StatusForbidden, domainErr.Message
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func abortWithError(c *gin.Context, err error) {
	status, message := statusForError(err)
	c.JSON(status, gin.H{"error": message})
}

// ListChats returns the chats the authenticated user participates in.
func (h *ChatHandler) ListChats(c *gin.Context) {
	username := c.GetString("username")

	chats, err := h.coordinator.ListChats(c.Request.Context(), username)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// CreatePrivateChat opens (or returns) the private chat with another user.
func (h *ChatHandler) CreatePrivateChat(c *gin.Context) {
	var req struct {
		Participant string `json:"participant" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	username := c.GetString("username")
	if req.Participant == username {
		c.JSON(http.StatusConflict, gin.H{"error": "cannot start a conversation with yourself"})
		return
	}

	chat, err := h.coordinator.CreatePrivateChat(c.Request.Context(), username, req.Participant)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, chat)
}

// CreateGroupChat creates a group chat with the caller as admin.
func (h *ChatHandler) CreateGroupChat(c *gin.Context) {
	var req struct {
		Name         string   `json:"name" binding:"required,max=75"`
		Participants []string `json:"participants"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	username := c.GetString("username")
	chat, err := h.coordinator.CreateGroupChat(c.Request.Context(), username, req.Name, req.Participants)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, chat)
}

// GetChatMessages returns the history of a chat the caller participates in.
func (h *ChatHandler) GetChatMessages(c *gin.Context) {
	username := c.GetString("username")

	msgs, err := h.coordinator.ListChatMessages(c.Request.Context(), username, c.Param("chat_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// AddParticipant adds a user to a group chat.
func (h *ChatHandler) AddParticipant(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	caller := c.GetString("username")
	if err := h.coordinator.AddParticipant(c.Request.Context(), caller, c.Param("chat_id"), req.Username); err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RemoveParticipant removes a user from a group chat.
func (h *ChatHandler) RemoveParticipant(c *gin.Context) {
	caller := c.GetString("username")

	if err := h.coordinator.RemoveParticipant(c.Request.Context(), caller, c.Param("chat_id"), c.Param("username")); err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UpdateAdmin grants or revokes the admin role on a group chat.
func (h *ChatHandler) UpdateAdmin(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Admin    *bool  `json:"admin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	caller := c.GetString("username")
	if err := h.coordinator.UpdateGroupAdmin(c.Request.Context(), caller, c.Param("chat_id"), req.Username, *req.Admin); err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
