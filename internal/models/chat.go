package models

import "time"

// Chat kinds.
const (
	ChatKindPrivate = "private"
	ChatKindGroup   = "group"
)

// Chat represents a persisted conversation, either a private chat between
// exactly two users or a named group chat with admin-managed membership.
type Chat struct {
	ID           string        `db:"id" json:"id"`
	Kind         string        `db:"kind" json:"kind"`
	Name         string        `db:"name" json:"name,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	Participants []Participant `json:"participants"`
}

// Participant is a member of a chat. IsAdmin is only meaningful for group
// chats; private chat participants are never admins.
type Participant struct {
	ChatID   string `db:"chat_id" json:"-"`
	Username string `db:"username" json:"username"`
	IsAdmin  bool   `db:"is_admin" json:"is_admin"`
}

// HasParticipant reports whether the user belongs to the chat.
func (c Chat) HasParticipant(username string) bool {
	for _, p := range c.Participants {
		if p.Username == username {
			return true
		}
	}
	return false
}

// HasAdmin reports whether the user is an admin of the chat.
func (c Chat) HasAdmin(username string) bool {
	for _, p := range c.Participants {
		if p.Username == username && p.IsAdmin {
			return true
		}
	}
	return false
}

// ParticipantNames returns the usernames of all participants.
func (c Chat) ParticipantNames() []string {
	names := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		names = append(names, p.Username)
	}
	return names
}

// AdminCount returns the number of admins in the chat.
func (c Chat) AdminCount() int {
	count := 0
	for _, p := range c.Participants {
		if p.IsAdmin {
			count++
		}
	}
	return count
}
