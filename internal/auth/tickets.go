package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TicketStore holds issued tickets until they are consumed or expire.
type TicketStore interface {
	Save(ctx context.Context, ticket, username string, ttl time.Duration) error
	// Consume atomically removes the ticket and returns its subject, or ""
	// when the ticket does not exist.
	Consume(ctx context.Context, ticket string) (string, error)
}

// RedisTicketStore keeps tickets in Redis so a ticket issued by one server
// process can be consumed by another.
type RedisTicketStore struct {
	client *redis.Client
}

// NewRedisTicketStore constructs a RedisTicketStore.
func NewRedisTicketStore(client *redis.Client) *RedisTicketStore {
	return &RedisTicketStore{client: client}
}

func ticketKey(ticket string) string {
	return "ticket:" + ticket
}

// Save stores the ticket with its TTL.
func (s *RedisTicketStore) Save(ctx context.Context, ticket, username string, ttl time.Duration) error {
	if err := s.client.Set(ctx, ticketKey(ticket), username, ttl).Err(); err != nil {
		return fmt.Errorf("ticket save: %w", err)
	}
	return nil
}

// Consume removes and returns the ticket subject via GETDEL, so two racing
// handshakes cannot both redeem the same ticket.
func (s *RedisTicketStore) Consume(ctx context.Context, ticket string) (string, error) {
	username, err := s.client.GetDel(ctx, ticketKey(ticket)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("ticket consume: %w", err)
	}
	return username, nil
}

// MemoryTicketStore is an in-process TicketStore for tests and single-node
// runs.
type MemoryTicketStore struct {
	mu      sync.Mutex
	tickets map[string]memoryTicket
	now     func() time.Time
}

type memoryTicket struct {
	username  string
	expiresAt time.Time
}

// NewMemoryTicketStore constructs an empty MemoryTicketStore.
func NewMemoryTicketStore() *MemoryTicketStore {
	return &MemoryTicketStore{tickets: make(map[string]memoryTicket), now: time.Now}
}

// SetClock overrides the time source. Test use only.
func (s *MemoryTicketStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Save stores the ticket with its TTL.
func (s *MemoryTicketStore) Save(_ context.Context, ticket, username string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[ticket] = memoryTicket{username: username, expiresAt: s.now().Add(ttl)}
	return nil
}

// Consume removes and returns the ticket subject.
func (s *MemoryTicketStore) Consume(_ context.Context, ticket string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tickets[ticket]
	if !ok {
		return "", nil
	}
	delete(s.tickets, ticket)
	if s.now().After(entry.expiresAt) {
		return "", nil
	}
	return entry.username, nil
}

var _ TicketStore = (*RedisTicketStore)(nil)
var _ TicketStore = (*MemoryTicketStore)(nil)
