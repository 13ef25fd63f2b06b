package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"chat-service/internal/auth"
	"chat-service/internal/models"
	"chat-service/internal/observability"
	"chat-service/internal/presence"
)

// readGrace is how much longer than the presence TTL a silent connection
// may live before the read deadline reaps it.
const readGrace = 10 * time.Second

// cleanupTimeout bounds the store calls on the disconnect path.
const cleanupTimeout = 5 * time.Second

// Handler drives the lifecycle of one websocket connection: authenticate,
// lock presence, relay events, and on disconnect release everything and
// notify peers.
type Handler struct {
	hub           *Hub
	coordinator   *Coordinator
	presence      presence.Store
	authenticator auth.Authenticator
	ttl           time.Duration
}

// NewHandler constructs a websocket Handler.
func NewHandler(hub *Hub, coordinator *Coordinator, store presence.Store, authenticator auth.Authenticator, ttl time.Duration) *Handler {
	if ttl <= 0 {
		ttl = presence.DefaultTTL
	}
	return &Handler{
		hub:           hub,
		coordinator:   coordinator,
		presence:      store,
		authenticator: authenticator,
		ttl:           ttl,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and runs it to completion.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("chat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	username, err := h.authenticate(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	session := newSession(conn, username)
	session.DeviceID = observability.ClientDeviceID(c.Request)
	session.IP = observability.ClientIP(c.Request)
	session.RequestID = observability.ClientRequestID(c.Request)
	session.TraceID = span.SpanContext().TraceID().String()

	// The presence lock is the single-session-per-user invariant. Denying
	// on store error is deliberate: an errored acquire proves nothing.
	acquired, err := h.presence.Acquire(ctx, username, session.ID, h.ttl)
	if err != nil {
		log.Printf("presence acquire failed user=%s: %v", username, err)
		session.SendError(err)
		session.Close(websocket.CloseInternalServerErr, "presence unavailable")
		return
	}
	if !acquired {
		session.SendError(errAlreadyConnected())
		session.Close(websocket.ClosePolicyViolation, "already connected")
		return
	}

	h.hub.Register(session)
	observability.IncWSActive()
	publishConnectionEvent(ctx, session, "ws_connect", "")
	log.Printf("websocket connected user=%s conn=%s", username, session.ID)

	h.coordinator.NotifyOnline(ctx, username)

	closeReason := h.readLoop(ctx, session)

	h.disconnect(session)
	publishConnectionEvent(ctx, session, "ws_disconnect", closeReason)
	log.Printf("websocket disconnected user=%s conn=%s reason=%q", username, session.ID, closeReason)
}

// authenticate extracts and validates the handshake credential. Tickets
// arrive as a query parameter because the websocket handshake cannot carry
// custom headers in all client environments; bearer tokens are accepted as
// a fallback.
func (h *Handler) authenticate(c *gin.Context) (string, error) {
	ctx := c.Request.Context()

	if ticket := c.Query("ticket"); ticket != "" {
		return h.authenticator.ValidateTicket(ctx, ticket)
	}

	token := ""
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			token = parts[1]
		}
	} else {
		token = c.Query("token")
	}
	return h.authenticator.ValidateToken(ctx, token)
}

// readLoop processes inbound events strictly in order: one event is handled
// to completion, suspension points included, before the next is read. It
// returns when the transport closes or the presence lock is lost.
func (h *Handler) readLoop(ctx context.Context, session *Session) (closeReason string) {
	conn := session.conn
	deadline := h.ttl + readGrace
	_ = conn.SetReadDeadline(time.Now().Add(deadline))

	renew := func() bool {
		ok, err := h.presence.Renew(ctx, session.Username, session.ID, h.ttl)
		if err != nil {
			log.Printf("presence renew failed user=%s: %v", session.Username, err)
			return false
		}
		return ok
	}

	// Transport-level pings renew the lock as well as the read deadline.
	conn.SetPingHandler(func(appData string) error {
		if !renew() {
			return websocket.ErrCloseSent
		}
		_ = conn.SetReadDeadline(time.Now().Add(deadline))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return ""
			}
			return err.Error()
		}
		_ = conn.SetReadDeadline(time.Now().Add(deadline))

		var frame models.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			session.SendError(errValidation("Malformed event"))
			continue
		}
		observability.IncWSEvent(frame.Event)

		if frame.Event == models.EventPing {
			if !renew() {
				session.SendError(errPresenceLost())
				return "presence lock lost"
			}
			_ = session.Send(models.Event{Event: models.EventPong})
			continue
		}

		if err := h.dispatch(ctx, session, frame); err != nil {
			var domainErr *DomainError
			if !errors.As(err, &domainErr) {
				log.Printf("websocket operation failed user=%s event=%s: %v", session.Username, frame.Event, err)
				publishConnectionEvent(ctx, session, "ws_error", err.Error())
			}
			session.SendError(err)
		}
	}
}

// dispatch routes one inbound event to the coordinator.
func (h *Handler) dispatch(ctx context.Context, session *Session, frame models.Frame) error {
	switch frame.Event {
	case models.EventRoomJoin:
		var data models.RoomJoinData
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			return errValidation("Malformed event payload")
		}
		return h.coordinator.JoinRoom(ctx, session.Username, data.ID)

	case models.EventRoomLeave:
		return h.coordinator.LeaveRoom(ctx, session.Username)

	case models.EventRoomSend:
		var data models.RoomSendData
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			return errValidation("Malformed event payload")
		}
		return h.coordinator.SendRoomMessage(ctx, session.Username, data.Message)

	case models.EventMessagePrivate:
		var data models.DirectMessageData
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			return errValidation("Malformed event payload")
		}
		return h.coordinator.SendPrivateMessage(ctx, session.Username, data.To, data.Content)

	case models.EventMessageGroup:
		var data models.DirectMessageData
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			return errValidation("Malformed event payload")
		}
		return h.coordinator.SendGroupMessage(ctx, session.Username, data.To, data.Content)

	default:
		return errValidation("Unknown event: " + frame.Event)
	}
}

// disconnect tears down everything the connection owned. Store errors here
// are logged and swallowed; TTL expiry cleans up whatever is left.
func (h *Handler) disconnect(session *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	h.hub.Unregister(session)

	if err := h.coordinator.LeaveRoom(ctx, session.Username); err != nil {
		log.Printf("leave room on disconnect failed user=%s: %v", session.Username, err)
	}

	// Release is marker-checked: if this connection's lock expired and a
	// newer connection re-acquired it, the new owner's lock stays put.
	if err := h.presence.Release(ctx, session.Username, session.ID); err != nil {
		log.Printf("presence release failed user=%s: %v", session.Username, err)
	}

	h.coordinator.NotifyOffline(ctx, session.Username)

	observability.DecWSActive()
	session.Close(websocket.CloseNormalClosure, "")
}
