package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is the lifetime of a presence lock between heartbeats.
const DefaultTTL = 30 * time.Second

// Store tracks which users currently own a live connection. At most one
// non-expired lock exists per user; the backing store's conditional set is
// the serialization point enforcing that. Renew and Release verify the
// caller's marker, so a connection whose lock expired and was re-acquired by
// a newer connection can never extend or delete the new owner's lock.
type Store interface {
	// Acquire sets the lock only if absent, recording the caller's marker.
	// Returns true iff this caller now holds the lock.
	Acquire(ctx context.Context, username, marker string, ttl time.Duration) (bool, error)
	// Renew extends the TTL only if the lock still carries the caller's
	// marker. A false return means ownership was lost and the caller must
	// disconnect.
	Renew(ctx context.Context, username, marker string, ttl time.Duration) (bool, error)
	// Release deletes the lock only if it still carries the caller's
	// marker. Idempotent.
	Release(ctx context.Context, username, marker string) error
	// IsHeld reports whether a live lock exists for the user.
	IsHeld(ctx context.Context, username string) (bool, error)
}

// The GET-and-mutate must be atomic; a plain EXPIRE or DEL could act on a
// lock re-acquired by another connection between check and call.
var (
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// RedisStore implements Store on a shared Redis instance so the lock is
// visible to every server process.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "presence:"}
}

func (s *RedisStore) key(username string) string {
	return s.prefix + username
}

// Acquire performs an atomic SET NX EX with the marker as the value.
func (s *RedisStore) Acquire(ctx context.Context, username, marker string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(username), marker, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("presence acquire: %w", err)
	}
	return ok, nil
}

// Renew extends the TTL when the caller still owns the lock. A missing key
// or a foreign marker both map to lost ownership.
func (s *RedisStore) Renew(ctx context.Context, username, marker string, ttl time.Duration) (bool, error) {
	n, err := renewScript.Run(ctx, s.client, []string{s.key(username)}, marker, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("presence renew: %w", err)
	}
	return n == 1, nil
}

// Release deletes the lock when the caller still owns it.
func (s *RedisStore) Release(ctx context.Context, username, marker string) error {
	if err := releaseScript.Run(ctx, s.client, []string{s.key(username)}, marker).Err(); err != nil {
		return fmt.Errorf("presence release: %w", err)
	}
	return nil
}

// IsHeld checks for a live lock without mutating it.
func (s *RedisStore) IsHeld(ctx context.Context, username string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(username)).Result()
	if err != nil {
		return false, fmt.Errorf("presence check: %w", err)
	}
	return n > 0, nil
}
