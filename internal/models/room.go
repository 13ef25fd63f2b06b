package models

import "time"

// Room is a named place users can join for live broadcast. The room document
// itself is persisted; who is currently inside lives in the membership store.
type Room struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
