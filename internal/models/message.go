package models

import "time"

// Message is an immutable chat or room message. Exactly one of ChatID and
// RoomID is set, depending on where the message was sent.
type Message struct {
	ID        string    `db:"id" json:"id"`
	ChatID    *string   `db:"chat_id" json:"chat_id,omitempty"`
	RoomID    *string   `db:"room_id" json:"room_id,omitempty"`
	Sender    string    `db:"sender" json:"sender"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
