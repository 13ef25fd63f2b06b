package ws

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"chat-service/internal/models"
)

// Hub is the per-process session registry: which local sockets belong to
// which user. It is rebuilt from nothing on restart; cross-process state
// lives in the presence and membership stores.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Session]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{sessions: make(map[string]map[*Session]bool)}
}

// Register adds a session under its username.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s.Username]; !ok {
		h.sessions[s.Username] = make(map[*Session]bool)
	}
	h.sessions[s.Username][s] = true
}

// Unregister removes a session.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sessions, ok := h.sessions[s.Username]; ok {
		delete(sessions, s)
		if len(sessions) == 0 {
			delete(h.sessions, s.Username)
		}
	}
}

// Deliver writes an event to every local session of the user. Sessions that
// fail the write are closed and evicted.
func (h *Hub) Deliver(username string, event models.Event) {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions[username]))
	for s := range h.sessions[username] {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		if err := s.Send(event); err != nil {
			log.Printf("websocket write error user=%s: %v", username, err)
			s.Close(websocket.CloseInternalServerErr, "write failed")
			h.Unregister(s)
		}
	}
}

// IsConnected reports whether the user has a session on this process.
func (h *Hub) IsConnected(username string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[username]) > 0
}

// CloseAll closes every session, used during graceful shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	all := make([]*Session, 0)
	for _, sessions := range h.sessions {
		for s := range sessions {
			all = append(all, s)
		}
	}
	h.sessions = make(map[string]map[*Session]bool)
	h.mu.Unlock()

	for _, s := range all {
		s.Close(websocket.CloseGoingAway, "server shutting down")
	}
}
