package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"chat-service/internal/models"
)

// MessageRepository abstracts message persistence. Messages are append-only;
// there is no update path.
type MessageRepository interface {
	AppendChatMessage(ctx context.Context, chatID, sender, content string) (models.Message, error)
	AppendRoomMessage(ctx context.Context, roomID, sender, content string) (models.Message, error)
	ListChatMessages(ctx context.Context, chatID string) ([]models.Message, error)
}

// MessageRepo is a sqlx implementation of MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// AppendChatMessage stores a message in a persistent chat.
func (r *MessageRepo) AppendChatMessage(ctx context.Context, chatID, sender, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (id, chat_id, sender, content) VALUES ($1, $2, $3, $4)
         RETURNING id, chat_id, room_id, sender, content, created_at`,
		uuid.NewString(), chatID, sender, content).StructScan(&msg)
	return msg, err
}

// AppendRoomMessage stores a message sent in an ephemeral room.
func (r *MessageRepo) AppendRoomMessage(ctx context.Context, roomID, sender, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (id, room_id, sender, content) VALUES ($1, $2, $3, $4)
         RETURNING id, chat_id, room_id, sender, content, created_at`,
		uuid.NewString(), roomID, sender, content).StructScan(&msg)
	return msg, err
}

// ListChatMessages returns a chat's history in creation order.
func (r *MessageRepo) ListChatMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT id, chat_id, room_id, sender, content, created_at FROM messages WHERE chat_id=$1 ORDER BY created_at`, chatID)
	return msgs, err
}
