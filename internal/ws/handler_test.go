package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-service/internal/auth"
	"chat-service/internal/bus"
	"chat-service/internal/mocks"
	"chat-service/internal/models"
	"chat-service/internal/presence"
	"chat-service/internal/rooms"
)

type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type wsTestEnv struct {
	server      *httptest.Server
	authService *auth.Service
	presence    *presence.MemoryStore
	roomRepo    *mocks.RoomRepositoryMock
	chatRepo    *mocks.ChatRepositoryMock
	messageRepo *mocks.MessageRepositoryMock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newWSTestEnv(t *testing.T) *wsTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	roomRepo := new(mocks.RoomRepositoryMock)
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	chatRepo.On("PeersOf", mock.Anything, mock.Anything).Return([]string{}, nil)

	hub := NewHub()
	b := bus.NewMemoryBus()
	coordinator := NewCoordinator(roomRepo, chatRepo, messageRepo, rooms.NewMemoryMemberStore(), b)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	recorder := newEventRecorder()
	go b.Subscribe(ctx, func(username string, event models.Event) {
		recorder.record(username, event)
		hub.Deliver(username, event)
	})
	require.Eventually(t, func() bool {
		_ = b.PublishToUser(context.Background(), "warmup", models.Event{Event: "warmup"})
		return len(recorder.named("warmup", "warmup")) > 0
	}, time.Second, 5*time.Millisecond)

	authService := auth.NewService(auth.NewMemoryTicketStore(), "test-secret", 2*time.Minute)
	presenceStore := presence.NewMemoryStore()
	handler := NewHandler(hub, coordinator, presenceStore, authService, 30*time.Second)

	router := gin.New()
	router.GET("/ws", handler.Handle)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	t.Cleanup(hub.CloseAll)

	return &wsTestEnv{
		server:      server,
		authService: authService,
		presence:    presenceStore,
		roomRepo:    roomRepo,
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
	}
}

func (env *wsTestEnv) dial(t *testing.T, username string) *websocket.Conn {
	t.Helper()

	ticket, err := env.authService.IssueTicket(context.Background(), username)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws?ticket=" + ticket
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame wsFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func expectEvent(t *testing.T, conn *websocket.Conn, eventName string) wsFrame {
	t.Helper()
	frame := readFrame(t, conn)
	require.Equal(t, eventName, frame.Event)
	return frame
}

func sendEvent(t *testing.T, conn *websocket.Conn, eventName string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(models.Event{Event: eventName, Data: data}))
}

func TestWebSocketRoomLifecycle(t *testing.T) {
	env := newWSTestEnv(t)
	env.roomRepo.On("GetRoom", mock.Anything, "lobby").Return(models.Room{ID: "lobby", Name: "Lobby"}, nil)
	env.messageRepo.On("AppendRoomMessage", mock.Anything, "lobby", "alice", "hello").
		Return(models.Message{ID: "m1", Sender: "alice", Content: "hello", CreatedAt: time.Now()}, nil)

	alice := env.dial(t, "alice")
	sendEvent(t, alice, models.EventRoomJoin, models.RoomJoinData{ID: "lobby"})
	expectEvent(t, alice, models.EventRoomJoined)

	var aliceList models.RoomUserListData
	frame := expectEvent(t, alice, models.EventRoomUserList)
	require.NoError(t, json.Unmarshal(frame.Data, &aliceList))
	assert.Equal(t, []string{"alice"}, aliceList.Users)

	bob := env.dial(t, "bob")
	sendEvent(t, bob, models.EventRoomJoin, models.RoomJoinData{ID: "lobby"})
	expectEvent(t, bob, models.EventRoomJoined)
	expectEvent(t, bob, models.EventRoomUserList)

	var joined models.RoomUserData
	frame = expectEvent(t, alice, models.EventRoomUserJoined)
	require.NoError(t, json.Unmarshal(frame.Data, &joined))
	assert.Equal(t, "bob", joined.User)
	expectEvent(t, alice, models.EventRoomUserList)

	sendEvent(t, alice, models.EventRoomSend, models.RoomSendData{Message: "hello"})

	var msg models.RoomMessageData
	frame = expectEvent(t, alice, models.EventRoomMessage)
	require.NoError(t, json.Unmarshal(frame.Data, &msg))
	assert.Equal(t, "hello", msg.Message)
	assert.Equal(t, "alice", msg.User)

	frame = expectEvent(t, bob, models.EventRoomMessage)
	require.NoError(t, json.Unmarshal(frame.Data, &msg))
	assert.Equal(t, "hello", msg.Message)

	// Bob dropping the connection is announced to the room.
	bob.Close()

	var left models.RoomUserData
	frame = expectEvent(t, alice, models.EventRoomUserLeft)
	require.NoError(t, json.Unmarshal(frame.Data, &left))
	assert.Equal(t, "bob", left.User)
	expectEvent(t, alice, models.EventRoomUserList)
}

func TestWebSocketSecondConnectionRejected(t *testing.T) {
	env := newWSTestEnv(t)

	first := env.dial(t, "alice")
	defer first.Close()

	second := env.dial(t, "alice")

	frame := expectEvent(t, second, models.EventError)
	var errData models.ErrorData
	require.NoError(t, json.Unmarshal(frame.Data, &errData))
	assert.Equal(t, CodeAlreadyConnected, errData.Code)

	require.NoError(t, second.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := second.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
}

func TestWebSocketReconnectAfterDisconnect(t *testing.T) {
	env := newWSTestEnv(t)

	first := env.dial(t, "alice")
	first.Close()

	// The disconnect path releases the presence lock, so a fresh connection
	// must be accepted without waiting for the TTL.
	require.Eventually(t, func() bool {
		ticket, err := env.authService.IssueTicket(context.Background(), "alice")
		if err != nil {
			return false
		}
		url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws?ticket=" + ticket
		conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if resp != nil {
			resp.Body.Close()
		}
		if err != nil {
			return false
		}
		defer conn.Close()

		if err := conn.WriteJSON(models.Event{Event: models.EventPing}); err != nil {
			return false
		}
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return false
		}
		return frame.Event == models.EventPong
	}, 3*time.Second, 50*time.Millisecond)
}

func TestStaleConnectionTeardownKeepsFreshLock(t *testing.T) {
	env := newWSTestEnv(t)
	clock := newFakeClock()
	env.presence.SetClock(clock.Now)

	stale := env.dial(t, "alice")

	// The stale connection stops renewing; once its lock expires a fresh
	// connection for the same user takes over.
	clock.Advance(31 * time.Second)
	fresh := env.dial(t, "alice")
	defer fresh.Close()
	sendEvent(t, fresh, models.EventPing, nil)
	expectEvent(t, fresh, models.EventPong)

	stale.Close()

	// The stale teardown must not delete the lock the fresh session owns.
	require.Never(t, func() bool {
		held, err := env.presence.IsHeld(context.Background(), "alice")
		return err != nil || !held
	}, 500*time.Millisecond, 20*time.Millisecond)

	third := env.dial(t, "alice")
	frame := expectEvent(t, third, models.EventError)
	var errData models.ErrorData
	require.NoError(t, json.Unmarshal(frame.Data, &errData))
	assert.Equal(t, CodeAlreadyConnected, errData.Code)
}

func TestPingAfterPresenceExpiryClosesConnection(t *testing.T) {
	env := newWSTestEnv(t)
	clock := newFakeClock()
	env.presence.SetClock(clock.Now)

	conn := env.dial(t, "alice")
	sendEvent(t, conn, models.EventPing, nil)
	expectEvent(t, conn, models.EventPong)

	clock.Advance(31 * time.Second)

	sendEvent(t, conn, models.EventPing, nil)
	frame := expectEvent(t, conn, models.EventError)
	var errData models.ErrorData
	require.NoError(t, json.Unmarshal(frame.Data, &errData))
	assert.Equal(t, CodeInternal, errData.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "connection must be closed after the lock is lost")
}

func TestWebSocketRejectsInvalidTicket(t *testing.T) {
	env := newWSTestEnv(t)

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws?ticket=bogus"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketTicketIsSingleUse(t *testing.T) {
	env := newWSTestEnv(t)

	ticket, err := env.authService.IssueTicket(context.Background(), "alice")
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws?ticket=" + ticket
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	conn.Close()

	_, resp, err = websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketUnknownEventReturnsValidationError(t *testing.T) {
	env := newWSTestEnv(t)

	conn := env.dial(t, "alice")
	sendEvent(t, conn, "room:teleport", nil)

	frame := expectEvent(t, conn, models.EventError)
	var errData models.ErrorData
	require.NoError(t, json.Unmarshal(frame.Data, &errData))
	assert.Equal(t, CodeValidation, errData.Code)
}

func signTestToken(t *testing.T, username string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestWebSocketBearerTokenFallback(t *testing.T) {
	env := newWSTestEnv(t)

	token := signTestToken(t, "alice")
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	sendEvent(t, conn, models.EventPing, nil)
	expectEvent(t, conn, models.EventPong)
}
