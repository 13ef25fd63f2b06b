package presence

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used for tests and single-node runs.
// It honors the same contract as RedisStore, including TTL expiry.
type MemoryStore struct {
	mu    sync.Mutex
	locks map[string]memoryLock
	now   func() time.Time
}

type memoryLock struct {
	marker    string
	expiresAt time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{locks: make(map[string]memoryLock), now: time.Now}
}

// SetClock overrides the time source. Test use only.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) live(username string) (memoryLock, bool) {
	lock, ok := s.locks[username]
	if !ok {
		return memoryLock{}, false
	}
	if s.now().After(lock.expiresAt) {
		delete(s.locks, username)
		return memoryLock{}, false
	}
	return lock, true
}

// Acquire sets the lock only if no live lock exists.
func (s *MemoryStore) Acquire(_ context.Context, username, marker string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.live(username); held {
		return false, nil
	}
	s.locks[username] = memoryLock{marker: marker, expiresAt: s.now().Add(ttl)}
	return true, nil
}

// Renew extends the TTL of a live lock still owned by the caller.
func (s *MemoryStore) Renew(_ context.Context, username, marker string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, held := s.live(username)
	if !held || lock.marker != marker {
		return false, nil
	}
	lock.expiresAt = s.now().Add(ttl)
	s.locks[username] = lock
	return true, nil
}

// Release deletes the lock if the caller still owns it.
func (s *MemoryStore) Release(_ context.Context, username, marker string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lock, held := s.live(username); held && lock.marker == marker {
		delete(s.locks, username)
	}
	return nil
}

// IsHeld reports whether a live lock exists.
func (s *MemoryStore) IsHeld(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, held := s.live(username)
	return held, nil
}

var _ Store = (*MemoryStore)(nil)
