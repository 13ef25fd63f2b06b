package models

import (
	"encoding/json"
	"time"
)

// Client-to-server event names.
const (
	EventRoomJoin       = "room:join"
	EventRoomLeave      = "room:leave"
	EventRoomSend       = "room:send"
	EventMessagePrivate = "message/private"
	EventMessageGroup   = "message/group"
	EventPing           = "ping"
)

// Server-to-client event names.
const (
	EventRoomJoined     = "room:joined"
	EventRoomLeft       = "room:left"
	EventRoomUserList   = "room:user-list"
	EventRoomUserJoined = "room:user-joined"
	EventRoomUserLeft   = "room:user-left"
	EventRoomMessage    = "room:message"
	EventUserOnline     = "user/online"
	EventUserOffline    = "user/offline"
	EventPong           = "pong"
	EventError          = "error"
)

// Event is an outbound websocket event.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Frame is an inbound websocket event whose payload is decoded by the
// handler of the named event.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RoomJoinData is the payload of room:join.
type RoomJoinData struct {
	ID string `json:"id"`
}

// RoomSendData is the payload of room:send.
type RoomSendData struct {
	Message string `json:"message"`
}

// DirectMessageData is the payload of message/private and message/group.
type DirectMessageData struct {
	To      string `json:"to"`
	Content string `json:"content"`
}

// RoomUserListData carries the current member list of a room.
type RoomUserListData struct {
	Users []string `json:"users"`
}

// RoomUserData names a single user entering or leaving a room.
type RoomUserData struct {
	User string `json:"user"`
}

// RoomMessageData is the payload of room:message.
type RoomMessageData struct {
	Message   string    `json:"message"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatMessageData is the payload of message/private and message/group pushes.
type ChatMessageData struct {
	Chat      string    `json:"chat"`
	Message   string    `json:"message"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}

// PresenceData is the payload of user/online and user/offline.
type PresenceData struct {
	User string `json:"user"`
}

// ErrorData is the payload of error events.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}
