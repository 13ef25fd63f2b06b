package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"chat-service/internal/models"
)

var ErrChatNotFound = errors.New("chat not found")

// ChatRepository abstracts chat and participant persistence.
type ChatRepository interface {
	CreateOrGetPrivateChat(ctx context.Context, userA, userB string) (models.Chat, error)
	CreateGroupChat(ctx context.Context, name, creator string, participants []string) (models.Chat, error)
	GetChat(ctx context.Context, chatID string) (models.Chat, error)
	ListChatsForUser(ctx context.Context, username string) ([]models.Chat, error)
	IsParticipant(ctx context.Context, chatID, username string) (bool, error)
	IsAdmin(ctx context.Context, chatID, username string) (bool, error)
	AddParticipant(ctx context.Context, chatID, username string, isAdmin bool) error
	RemoveParticipant(ctx context.Context, chatID, username string) error
	SetAdmin(ctx context.Context, chatID, username string, isAdmin bool) error
	DeleteChat(ctx context.Context, chatID string) error
	PeersOf(ctx context.Context, username string) ([]string, error)
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// CreateOrGetPrivateChat returns the existing private chat between the two
// users or creates it. The pair is unordered: (a, b) and (b, a) map to the
// same chat.
func (r *ChatRepo) CreateOrGetPrivateChat(ctx context.Context, userA, userB string) (models.Chat, error) {
	if userA == userB {
		return models.Chat{}, errors.New("cannot create chat with self")
	}
	participants := []string{userA, userB}
	sort.Strings(participants)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Chat{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	// The select-then-insert below has no unique constraint backing it, so
	// concurrent creations of the same pair are serialized on an advisory
	// lock scoped to this transaction.
	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`,
		"private_chat:"+participants[0]+":"+participants[1]); err != nil {
		return models.Chat{}, err
	}

	var chatID string
	err = tx.GetContext(ctx, &chatID, `
        SELECT c.id FROM chats c
        JOIN chat_participants p ON p.chat_id = c.id
        WHERE c.kind = 'private' AND p.username IN ($1, $2)
        GROUP BY c.id
        HAVING COUNT(DISTINCT p.username) = 2`,
		participants[0], participants[1])
	if err != nil && err != sql.ErrNoRows {
		return models.Chat{}, err
	}

	if err == sql.ErrNoRows {
		chatID = uuid.NewString()
		if _, err = tx.ExecContext(ctx, `INSERT INTO chats (id, kind) VALUES ($1, 'private')`, chatID); err != nil {
			return models.Chat{}, err
		}
		for _, username := range participants {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO chat_participants (chat_id, username, is_admin) VALUES ($1, $2, FALSE)`,
				chatID, username); err != nil {
				return models.Chat{}, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Chat{}, err
	}
	return r.GetChat(ctx, chatID)
}

// CreateGroupChat creates a group chat with the creator as its sole admin.
func (r *ChatRepo) CreateGroupChat(ctx context.Context, name, creator string, participants []string) (models.Chat, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Chat{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	chatID := uuid.NewString()
	if _, err = tx.ExecContext(ctx, `INSERT INTO chats (id, kind, name) VALUES ($1, 'group', $2)`, chatID, name); err != nil {
		return models.Chat{}, err
	}

	// creator is always present and deduped against the member list
	memberSet := map[string]struct{}{creator: {}}
	for _, username := range participants {
		memberSet[username] = struct{}{}
	}
	members := make([]string, 0, len(memberSet))
	for username := range memberSet {
		members = append(members, username)
	}
	sort.Strings(members)

	for _, username := range members {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO chat_participants (chat_id, username, is_admin) VALUES ($1, $2, $3)`,
			chatID, username, username == creator); err != nil {
			return models.Chat{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Chat{}, err
	}
	return r.GetChat(ctx, chatID)
}

// GetChat fetches a chat with its participants. Participants are ordered by
// username so selection among them is deterministic.
func (r *ChatRepo) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT id, kind, name, created_at FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	if err != nil {
		return models.Chat{}, err
	}

	err = r.db.SelectContext(ctx, &chat.Participants,
		`SELECT chat_id, username, is_admin FROM chat_participants WHERE chat_id=$1 ORDER BY username`, chatID)
	if err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

// ListChatsForUser returns the chats the user participates in, most recent
// first, participants populated.
func (r *ChatRepo) ListChatsForUser(ctx context.Context, username string) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.SelectContext(ctx, &chats, `
        SELECT c.id, c.kind, c.name, c.created_at FROM chats c
        JOIN chat_participants p ON p.chat_id = c.id
        WHERE p.username = $1
        ORDER BY c.created_at DESC`, username)
	if err != nil {
		return nil, err
	}

	for i := range chats {
		if err := r.db.SelectContext(ctx, &chats[i].Participants,
			`SELECT chat_id, username, is_admin FROM chat_participants WHERE chat_id=$1 ORDER BY username`,
			chats[i].ID); err != nil {
			return nil, err
		}
	}
	return chats, nil
}

// IsParticipant checks whether the user belongs to the chat.
func (r *ChatRepo) IsParticipant(ctx context.Context, chatID, username string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM chat_participants WHERE chat_id=$1 AND username=$2)`, chatID, username)
	return exists, err
}

// IsAdmin checks whether the user administers the chat.
func (r *ChatRepo) IsAdmin(ctx context.Context, chatID, username string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM chat_participants WHERE chat_id=$1 AND username=$2 AND is_admin)`, chatID, username)
	return exists, err
}

// AddParticipant inserts a participant row.
func (r *ChatRepo) AddParticipant(ctx context.Context, chatID, username string, isAdmin bool) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_participants (chat_id, username, is_admin) VALUES ($1, $2, $3)`, chatID, username, isAdmin)
	return err
}

// RemoveParticipant deletes a participant row.
func (r *ChatRepo) RemoveParticipant(ctx context.Context, chatID, username string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM chat_participants WHERE chat_id=$1 AND username=$2`, chatID, username)
	return err
}

// SetAdmin toggles the admin flag of a participant.
func (r *ChatRepo) SetAdmin(ctx context.Context, chatID, username string, isAdmin bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE chat_participants SET is_admin=$3 WHERE chat_id=$1 AND username=$2`, chatID, username, isAdmin)
	return err
}

// DeleteChat removes the chat, its participants and messages.
func (r *ChatRepo) DeleteChat(ctx context.Context, chatID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM chats WHERE id=$1`, chatID)
	return err
}

// PeersOf returns the distinct usernames sharing at least one chat with the
// user. Used to decide who is told about online/offline transitions.
func (r *ChatRepo) PeersOf(ctx context.Context, username string) ([]string, error) {
	var peers []string
	err := r.db.SelectContext(ctx, &peers, `
        SELECT DISTINCT p2.username FROM chat_participants p1
        JOIN chat_participants p2 ON p2.chat_id = p1.chat_id
        WHERE p1.username = $1 AND p2.username <> $1
        ORDER BY p2.username`, username)
	return peers, err
}
