package ws

import (
	"context"
	"errors"
	"fmt"
	"log"

	"chat-service/internal/bus"
	"chat-service/internal/models"
	"chat-service/internal/repositories"
	"chat-service/internal/rooms"
)

// Coordinator implements the room and chat operations behind both the
// websocket events and the REST surface. Every operation validates the
// caller's identity before mutating anything, and all recipient delivery
// goes through the broadcast bus so it works regardless of which process
// holds each recipient's socket.
type Coordinator struct {
	roomRepo    repositories.RoomRepository
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	members     rooms.MemberStore
	bus         bus.Bus
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(
	roomRepo repositories.RoomRepository,
	chatRepo repositories.ChatRepository,
	messageRepo repositories.MessageRepository,
	members rooms.MemberStore,
	b bus.Bus,
) *Coordinator {
	return &Coordinator{
		roomRepo:    roomRepo,
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		members:     members,
		bus:         b,
	}
}

// publish is fire-and-forget: a failed delivery to one recipient must not
// fail the operation for the caller.
func (c *Coordinator) publish(ctx context.Context, username string, event models.Event) {
	if err := c.bus.PublishToUser(ctx, username, event); err != nil {
		log.Printf("bus publish failed user=%s event=%s: %v", username, event.Event, err)
	}
}

// JoinRoom verifies the room exists, cleans up any stale membership, joins,
// and tells everyone in the room who is there now.
func (c *Coordinator) JoinRoom(ctx context.Context, username, roomID string) error {
	if roomID == "" {
		return errValidation("Room id is required")
	}

	if _, err := c.roomRepo.GetRoom(ctx, roomID); err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			return errNotFound("Room not found")
		}
		return fmt.Errorf("find room: %w", err)
	}

	// A crash without clean disconnect can leave the user joined to an old
	// room; the reverse pointer lets us clear it before joining.
	prev, err := c.members.RoomOf(ctx, username)
	if err != nil {
		return err
	}
	if prev != "" && prev != roomID {
		if err := c.leaveAndNotify(ctx, username, prev); err != nil {
			return err
		}
	}

	if err := c.members.Join(ctx, roomID, username); err != nil {
		return err
	}

	users, err := c.members.Members(ctx, roomID)
	if err != nil {
		return err
	}

	c.publish(ctx, username, models.Event{Event: models.EventRoomJoined})
	c.publish(ctx, username, models.Event{Event: models.EventRoomUserList, Data: models.RoomUserListData{Users: users}})

	for _, member := range users {
		if member == username {
			continue
		}
		c.publish(ctx, member, models.Event{Event: models.EventRoomUserJoined, Data: models.RoomUserData{User: username}})
		c.publish(ctx, member, models.Event{Event: models.EventRoomUserList, Data: models.RoomUserListData{Users: users}})
	}
	return nil
}

// LeaveRoom removes the user from its current room, if any. Safe to call on
// the disconnect path even when the user never joined a room.
func (c *Coordinator) LeaveRoom(ctx context.Context, username string) error {
	roomID, err := c.members.RoomOf(ctx, username)
	if err != nil {
		return err
	}
	if roomID == "" {
		return nil
	}

	if err := c.leaveAndNotify(ctx, username, roomID); err != nil {
		return err
	}
	c.publish(ctx, username, models.Event{Event: models.EventRoomLeft})
	return nil
}

func (c *Coordinator) leaveAndNotify(ctx context.Context, username, roomID string) error {
	if err := c.members.Leave(ctx, roomID, username); err != nil {
		return err
	}

	remaining, err := c.members.Members(ctx, roomID)
	if err != nil {
		return err
	}
	for _, member := range remaining {
		c.publish(ctx, member, models.Event{Event: models.EventRoomUserLeft, Data: models.RoomUserData{User: username}})
		c.publish(ctx, member, models.Event{Event: models.EventRoomUserList, Data: models.RoomUserListData{Users: remaining}})
	}
	return nil
}

// SendRoomMessage persists the message and fans it out to every current
// room member, the sender included (the sender's copy is the echo).
func (c *Coordinator) SendRoomMessage(ctx context.Context, username, content string) error {
	if content == "" {
		return errValidation("Message must not be empty")
	}

	roomID, err := c.members.RoomOf(ctx, username)
	if err != nil {
		return err
	}
	if roomID == "" {
		return errNoRoomAssociated()
	}

	msg, err := c.messageRepo.AppendRoomMessage(ctx, roomID, username, content)
	if err != nil {
		return fmt.Errorf("append room message: %w", err)
	}

	members, err := c.members.Members(ctx, roomID)
	if err != nil {
		return err
	}

	event := models.Event{Event: models.EventRoomMessage, Data: models.RoomMessageData{
		Message:   msg.Content,
		User:      username,
		Timestamp: msg.CreatedAt,
	}}
	for _, member := range members {
		c.publish(ctx, member, event)
	}
	return nil
}

// SendPrivateMessage persists and delivers a message in a private chat.
func (c *Coordinator) SendPrivateMessage(ctx context.Context, username, chatID, content string) error {
	return c.sendChatMessage(ctx, username, chatID, content, models.ChatKindPrivate, models.EventMessagePrivate)
}

// SendGroupMessage persists and delivers a message in a group chat.
func (c *Coordinator) SendGroupMessage(ctx context.Context, username, chatID, content string) error {
	return c.sendChatMessage(ctx, username, chatID, content, models.ChatKindGroup, models.EventMessageGroup)
}

func (c *Coordinator) sendChatMessage(ctx context.Context, username, chatID, content, kind, eventName string) error {
	if content == "" {
		return errValidation("Message must not be empty")
	}

	chat, err := c.chatRepo.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, repositories.ErrChatNotFound) {
			return errNotFound("Chat not found")
		}
		return fmt.Errorf("find chat: %w", err)
	}
	if chat.Kind != kind {
		return errNotFound("Chat not found")
	}
	if !chat.HasParticipant(username) {
		return errAuthorization("You must be a participant of the conversation")
	}

	msg, err := c.messageRepo.AppendChatMessage(ctx, chatID, username, content)
	if err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}

	event := models.Event{Event: eventName, Data: models.ChatMessageData{
		Chat:      chatID,
		Message:   msg.Content,
		User:      username,
		Timestamp: msg.CreatedAt,
	}}
	for _, participant := range chat.Participants {
		c.publish(ctx, participant.Username, event)
	}
	return nil
}

// CreatePrivateChat opens a private chat between the caller and one other
// user; creating the same pair twice returns the existing chat.
func (c *Coordinator) CreatePrivateChat(ctx context.Context, creator, other string) (models.Chat, error) {
	if other == "" {
		return models.Chat{}, errValidation("Participant is required")
	}
	if other == creator {
		return models.Chat{}, errValidation("You cannot start a conversation with yourself")
	}

	chat, err := c.chatRepo.CreateOrGetPrivateChat(ctx, creator, other)
	if err != nil {
		return models.Chat{}, fmt.Errorf("create private chat: %w", err)
	}
	return chat, nil
}

// CreateGroupChat creates a named group chat with the caller as admin.
func (c *Coordinator) CreateGroupChat(ctx context.Context, creator, name string, participants []string) (models.Chat, error) {
	if name == "" {
		return models.Chat{}, errValidation("Group name is required")
	}
	if len(name) > 75 {
		return models.Chat{}, errValidation("Group name must not exceed 75 characters")
	}

	chat, err := c.chatRepo.CreateGroupChat(ctx, name, creator, participants)
	if err != nil {
		return models.Chat{}, fmt.Errorf("create group chat: %w", err)
	}
	return chat, nil
}

// AddParticipant adds a user to a group chat. Caller must be an admin.
func (c *Coordinator) AddParticipant(ctx context.Context, caller, chatID, target string) error {
	chat, err := c.getGroupChat(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasAdmin(caller) {
		return errAuthorization("You must be an administrator of the chat")
	}
	if chat.HasParticipant(target) {
		return errValidation("User is already a participant of the chat")
	}

	if err := c.chatRepo.AddParticipant(ctx, chatID, target, false); err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	return nil
}

// RemoveParticipant removes a user from a group chat. Removing the last
// participant deletes the chat; removing the sole admin first promotes the
// first remaining participant so the chat is never left without one.
func (c *Coordinator) RemoveParticipant(ctx context.Context, caller, chatID, target string) error {
	chat, err := c.getGroupChat(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasAdmin(caller) {
		return errAuthorization("You must be an administrator of the chat")
	}
	if !chat.HasParticipant(target) {
		return errNotFound("User is not a participant of the chat")
	}

	if len(chat.Participants) == 1 {
		if err := c.chatRepo.DeleteChat(ctx, chatID); err != nil {
			return fmt.Errorf("delete chat: %w", err)
		}
		return nil
	}

	if chat.HasAdmin(target) && chat.AdminCount() == 1 {
		if err := c.promoteNext(ctx, chat, target); err != nil {
			return err
		}
	}

	if err := c.chatRepo.RemoveParticipant(ctx, chatID, target); err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}
	return nil
}

// UpdateGroupAdmin grants or revokes the admin role. Revoking the sole
// admin promotes the first remaining participant instead of leaving the
// group without one.
func (c *Coordinator) UpdateGroupAdmin(ctx context.Context, caller, chatID, target string, makeAdmin bool) error {
	chat, err := c.getGroupChat(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasAdmin(caller) {
		return errAuthorization("You must be an administrator of the chat")
	}
	if !chat.HasParticipant(target) {
		return errNotFound("User is not a participant of the chat")
	}

	if !makeAdmin && chat.HasAdmin(target) && chat.AdminCount() == 1 {
		if len(chat.Participants) == 1 {
			return errValidation("Chat must retain at least one administrator")
		}
		if err := c.promoteNext(ctx, chat, target); err != nil {
			return err
		}
	}

	if err := c.chatRepo.SetAdmin(ctx, chatID, target, makeAdmin); err != nil {
		return fmt.Errorf("update admin: %w", err)
	}
	return nil
}

// promoteNext makes the first participant other than excluded an admin.
// Participants are ordered by username, so the choice is deterministic.
func (c *Coordinator) promoteNext(ctx context.Context, chat models.Chat, excluded string) error {
	for _, p := range chat.Participants {
		if p.Username == excluded {
			continue
		}
		if err := c.chatRepo.SetAdmin(ctx, chat.ID, p.Username, true); err != nil {
			return fmt.Errorf("promote admin: %w", err)
		}
		return nil
	}
	return errValidation("Chat must retain at least one administrator")
}

func (c *Coordinator) getGroupChat(ctx context.Context, chatID string) (models.Chat, error) {
	chat, err := c.chatRepo.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, repositories.ErrChatNotFound) {
			return models.Chat{}, errNotFound("Chat not found")
		}
		return models.Chat{}, fmt.Errorf("find chat: %w", err)
	}
	if chat.Kind != models.ChatKindGroup {
		return models.Chat{}, errNotFound("Chat not found")
	}
	return chat, nil
}

// NotifyOnline tells everyone sharing a chat with the user that they came
// online. Best effort.
func (c *Coordinator) NotifyOnline(ctx context.Context, username string) {
	c.notifyPresence(ctx, username, models.EventUserOnline)
}

// NotifyOffline tells everyone sharing a chat with the user that they went
// offline. Best effort.
func (c *Coordinator) NotifyOffline(ctx context.Context, username string) {
	c.notifyPresence(ctx, username, models.EventUserOffline)
}

func (c *Coordinator) notifyPresence(ctx context.Context, username, eventName string) {
	peers, err := c.chatRepo.PeersOf(ctx, username)
	if err != nil {
		log.Printf("presence notify failed user=%s: %v", username, err)
		return
	}
	for _, peer := range peers {
		c.publish(ctx, peer, models.Event{Event: eventName, Data: models.PresenceData{User: username}})
	}
}

// ListChats returns the chats the user participates in.
func (c *Coordinator) ListChats(ctx context.Context, username string) ([]models.Chat, error) {
	return c.chatRepo.ListChatsForUser(ctx, username)
}

// ListChatMessages returns the history of a chat the user participates in.
func (c *Coordinator) ListChatMessages(ctx context.Context, username, chatID string) ([]models.Message, error) {
	member, err := c.chatRepo.IsParticipant(ctx, chatID, username)
	if err != nil {
		return nil, fmt.Errorf("check participant: %w", err)
	}
	if !member {
		return nil, errAuthorization("You must be a participant of the conversation")
	}
	return c.messageRepo.ListChatMessages(ctx, chatID)
}
