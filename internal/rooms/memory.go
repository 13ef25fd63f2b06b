package rooms

import (
	"context"
	"sync"
)

// MemoryMemberStore is an in-process MemberStore used for tests and
// single-node runs.
type MemoryMemberStore struct {
	mu      sync.RWMutex
	members map[string]map[string]bool
	roomOf  map[string]string
}

// NewMemoryMemberStore constructs an empty MemoryMemberStore.
func NewMemoryMemberStore() *MemoryMemberStore {
	return &MemoryMemberStore{
		members: make(map[string]map[string]bool),
		roomOf:  make(map[string]string),
	}
}

// Join adds the user to the room, cleaning up any stale membership first.
func (s *MemoryMemberStore) Join(_ context.Context, roomID, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.roomOf[username]; ok && prev != roomID {
		s.remove(prev, username)
	}
	if s.members[roomID] == nil {
		s.members[roomID] = make(map[string]bool)
	}
	s.members[roomID][username] = true
	s.roomOf[username] = roomID
	return nil
}

// Leave removes the user from the room. No-op when not present. The reverse
// pointer is cleared only when it points at this room, so leaving a room the
// user never joined cannot orphan a real membership.
func (s *MemoryMemberStore) Leave(_ context.Context, roomID, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(roomID, username)
	if s.roomOf[username] == roomID {
		delete(s.roomOf, username)
	}
	return nil
}

func (s *MemoryMemberStore) remove(roomID, username string) {
	if members, ok := s.members[roomID]; ok {
		delete(members, username)
		if len(members) == 0 {
			delete(s.members, roomID)
		}
	}
}

// Members returns a snapshot of the room's members.
func (s *MemoryMemberStore) Members(_ context.Context, roomID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := s.members[roomID]
	result := make([]string, 0, len(members))
	for username := range members {
		result = append(result, username)
	}
	return result, nil
}

// RoomOf returns the user's current room, or "".
func (s *MemoryMemberStore) RoomOf(_ context.Context, username string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomOf[username], nil
}

var _ MemberStore = (*MemoryMemberStore)(nil)
