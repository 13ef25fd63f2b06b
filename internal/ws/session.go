package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-service/internal/models"
)

// Session is one authenticated websocket connection, owned exclusively by
// the process that accepted it.
type Session struct {
	ID          string
	Username    string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time

	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  bool
}

func newSession(conn *websocket.Conn, username string) *Session {
	return &Session{
		ID:          uuid.NewString(),
		Username:    username,
		ConnectedAt: time.Now(),
		conn:        conn,
	}
}

// Send writes an event to the socket. Safe for concurrent use; the read
// loop and the bus dispatcher both end up here.
func (s *Session) Send(event models.Event) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return websocket.ErrCloseSent
	}
	return s.conn.WriteJSON(event)
}

// SendError translates the error and sends it as an error event.
func (s *Session) SendError(err error) {
	_ = s.Send(errorEvent(err))
}

// Close sends a close frame and tears down the socket. Idempotent.
func (s *Session) Close(code int, reason string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	deadline := time.Now().Add(time.Second)
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = s.conn.Close()
}
