package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-service/internal/mocks"
	"chat-service/internal/models"
	"chat-service/internal/repositories"
)

func setupRoomRouter(handler *RoomHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("username", "alice")
		c.Next()
	})
	r.POST("/rooms", handler.CreateRoom)
	r.GET("/rooms", handler.ListRooms)
	r.GET("/rooms/:room_id", handler.GetRoom)
	r.DELETE("/rooms/:room_id", handler.DeleteRoom)
	return r
}

func TestCreateRoomSuccess(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	router := setupRoomRouter(NewRoomHandler(roomRepo))

	roomRepo.On("CreateRoom", mock.Anything, "lobby", "general talk").
		Return(models.Room{ID: "r1", Name: "lobby", Description: "general talk"}, nil).Once()

	body := bytes.NewBufferString(`{"name":"lobby","description":"general talk"}`)
	req := httptest.NewRequest(http.MethodPost, "/rooms", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.Room
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "r1", resp.ID)
	roomRepo.AssertExpectations(t)
}

func TestCreateRoomDuplicateName(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	router := setupRoomRouter(NewRoomHandler(roomRepo))

	roomRepo.On("CreateRoom", mock.Anything, "lobby", "").
		Return(nil, repositories.ErrRoomNameTaken).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms", bytes.NewBufferString(`{"name":"lobby"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestCreateRoomRejectsMissingName(t *testing.T) {
	router := setupRoomRouter(NewRoomHandler(new(mocks.RoomRepositoryMock)))

	req := httptest.NewRequest(http.MethodPost, "/rooms", bytes.NewBufferString(`{"description":"x"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRoomNotFound(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	router := setupRoomRouter(NewRoomHandler(roomRepo))

	roomRepo.On("GetRoom", mock.Anything, "missing").Return(nil, repositories.ErrRoomNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestListRoomsSuccess(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	router := setupRoomRouter(NewRoomHandler(roomRepo))

	roomRepo.On("ListRooms", mock.Anything).
		Return([]models.Room{{ID: "r1", Name: "lobby"}, {ID: "r2", Name: "random"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Rooms []models.Room `json:"rooms"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Rooms, 2)
	roomRepo.AssertExpectations(t)
}

func TestDeleteRoomSuccess(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	router := setupRoomRouter(NewRoomHandler(roomRepo))

	roomRepo.On("DeleteRoom", mock.Anything, "r1").Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/rooms/r1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	roomRepo.AssertExpectations(t)
}
