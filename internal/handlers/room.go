package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-service/internal/repositories"
)

// RoomHandler manages the room catalog. Room membership is ephemeral and
// handled over the websocket; these endpoints manage the room documents.
type RoomHandler struct {
	roomRepo repositories.RoomRepository
}

// NewRoomHandler builds a RoomHandler.
func NewRoomHandler(roomRepo repositories.RoomRepository) *RoomHandler {
	return &RoomHandler{roomRepo: roomRepo}
}

// CreateRoom creates a room with a unique name.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required,max=50"`
		Description string `json:"description" binding:"max=200"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.roomRepo.CreateRoom(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		if errors.Is(err, repositories.ErrRoomNameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "room name is already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create room"})
		return
	}

	c.JSON(http.StatusCreated, room)
}

// GetRoom returns a single room.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.roomRepo.GetRoom(c.Request.Context(), c.Param("room_id"))
	if err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}

	c.JSON(http.StatusOK, room)
}

// ListRooms returns every room.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.roomRepo.ListRooms(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rooms"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// DeleteRoom removes a room document. Members still joined keep their
// ephemeral membership until they leave or disconnect.
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	err := h.roomRepo.DeleteRoom(c.Request.Context(), c.Param("room_id"))
	if err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete room"})
		return
	}

	c.Status(http.StatusNoContent)
}
