package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-service/internal/models"
	"chat-service/internal/repositories"
)

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) CreateRoom(ctx context.Context, name, description string) (models.Room, error) {
	args := m.Called(ctx, name, description)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	args := m.Called(ctx, roomID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) ListRooms(ctx context.Context) ([]models.Room, error) {
	args := m.Called(ctx)
	var list []models.Room
	if val := args.Get(0); val != nil {
		list = val.([]models.Room)
	}
	return list, args.Error(1)
}

func (m *RoomRepositoryMock) DeleteRoom(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) CreateOrGetPrivateChat(ctx context.Context, userA, userB string) (models.Chat, error) {
	args := m.Called(ctx, userA, userB)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) CreateGroupChat(ctx context.Context, name, creator string, participants []string) (models.Chat, error) {
	args := m.Called(ctx, name, creator, participants)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) ListChatsForUser(ctx context.Context, username string) ([]models.Chat, error) {
	args := m.Called(ctx, username)
	var list []models.Chat
	if val := args.Get(0); val != nil {
		list = val.([]models.Chat)
	}
	return list, args.Error(1)
}

func (m *ChatRepositoryMock) IsParticipant(ctx context.Context, chatID, username string) (bool, error) {
	args := m.Called(ctx, chatID, username)
	return args.Bool(0), args.Error(1)
}

func (m *ChatRepositoryMock) IsAdmin(ctx context.Context, chatID, username string) (bool, error) {
	args := m.Called(ctx, chatID, username)
	return args.Bool(0), args.Error(1)
}

func (m *ChatRepositoryMock) AddParticipant(ctx context.Context, chatID, username string, isAdmin bool) error {
	args := m.Called(ctx, chatID, username, isAdmin)
	return args.Error(0)
}

func (m *ChatRepositoryMock) RemoveParticipant(ctx context.Context, chatID, username string) error {
	args := m.Called(ctx, chatID, username)
	return args.Error(0)
}

func (m *ChatRepositoryMock) SetAdmin(ctx context.Context, chatID, username string, isAdmin bool) error {
	args := m.Called(ctx, chatID, username, isAdmin)
	return args.Error(0)
}

func (m *ChatRepositoryMock) DeleteChat(ctx context.Context, chatID string) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

func (m *ChatRepositoryMock) PeersOf(ctx context.Context, username string) ([]string, error) {
	args := m.Called(ctx, username)
	var peers []string
	if val := args.Get(0); val != nil {
		peers = val.([]string)
	}
	return peers, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) AppendChatMessage(ctx context.Context, chatID, sender, content string) (models.Message, error) {
	args := m.Called(ctx, chatID, sender, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) AppendRoomMessage(ctx context.Context, roomID, sender, content string) (models.Message, error) {
	args := m.Called(ctx, roomID, sender, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListChatMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

var (
	_ repositories.RoomRepository    = (*RoomRepositoryMock)(nil)
	_ repositories.ChatRepository    = (*ChatRepositoryMock)(nil)
	_ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
)
