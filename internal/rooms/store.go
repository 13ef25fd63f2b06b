package rooms

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// MemberStore holds the ephemeral mapping of room to connected usernames and
// the reverse pointer from username to its single current room. The forward
// set and the reverse pointer must always agree.
type MemberStore interface {
	// Join adds the user to the room. Any lingering membership in another
	// room is removed first, so a crashed connection cannot leave stale
	// entries behind.
	Join(ctx context.Context, roomID, username string) error
	// Leave removes the user from the room. No-op when not present.
	Leave(ctx context.Context, roomID, username string) error
	// Members returns a snapshot of the room's members. No ordering.
	Members(ctx context.Context, roomID string) ([]string, error)
	// RoomOf returns the user's current room, or "" when none.
	RoomOf(ctx context.Context, username string) (string, error)
}

// RedisMemberStore implements MemberStore on a shared Redis instance using a
// set per room and a string key per user.
type RedisMemberStore struct {
	client *redis.Client
}

// NewRedisMemberStore constructs a RedisMemberStore.
func NewRedisMemberStore(client *redis.Client) *RedisMemberStore {
	return &RedisMemberStore{client: client}
}

func roomKey(roomID string) string {
	return "room:" + roomID + ":members"
}

func userKey(username string) string {
	return "user:" + username + ":room"
}

// Join removes any stale membership, then adds the user to the room and sets
// the reverse pointer in one pipeline.
func (s *RedisMemberStore) Join(ctx context.Context, roomID, username string) error {
	prev, err := s.RoomOf(ctx, username)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	if prev != "" && prev != roomID {
		pipe.SRem(ctx, roomKey(prev), username)
	}
	pipe.SAdd(ctx, roomKey(roomID), username)
	pipe.Set(ctx, userKey(username), roomID, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("room join: %w", err)
	}
	return nil
}

// The reverse pointer is deleted only while it still points at the room
// being left; the check and the delete must be one atomic step.
var leaveScript = redis.NewScript(`
redis.call("SREM", KEYS[1], ARGV[1])
if redis.call("GET", KEYS[2]) == ARGV[2] then
	redis.call("DEL", KEYS[2])
end
return 0`)

// Leave removes the user from the room set and clears the reverse pointer
// when it points at that room. No-op when the user is not in the room.
func (s *RedisMemberStore) Leave(ctx context.Context, roomID, username string) error {
	err := leaveScript.Run(ctx, s.client,
		[]string{roomKey(roomID), userKey(username)}, username, roomID).Err()
	if err != nil {
		return fmt.Errorf("room leave: %w", err)
	}
	return nil
}

// Members returns the current member snapshot.
func (s *RedisMemberStore) Members(ctx context.Context, roomID string) ([]string, error) {
	members, err := s.client.SMembers(ctx, roomKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("room members: %w", err)
	}
	return members, nil
}

// RoomOf returns the user's current room via the reverse pointer.
func (s *RedisMemberStore) RoomOf(ctx context.Context, username string) (string, error) {
	roomID, err := s.client.Get(ctx, userKey(username)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("room lookup: %w", err)
	}
	return roomID, nil
}
