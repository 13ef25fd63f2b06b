package ws

import "testing"

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := NewHub()
	session := &Session{ID: "s1", Username: "alice"}

	hub.Register(session)
	if !hub.IsConnected("alice") {
		t.Fatalf("expected alice to be connected")
	}

	hub.Unregister(session)
	if hub.IsConnected("alice") {
		t.Fatalf("expected alice to be disconnected")
	}
	if len(hub.sessions) != 0 {
		t.Fatalf("expected empty username entry to be removed")
	}
}

func TestHubTracksMultipleSessionsPerUser(t *testing.T) {
	hub := NewHub()
	first := &Session{ID: "s1", Username: "alice"}
	second := &Session{ID: "s2", Username: "alice"}

	hub.Register(first)
	hub.Register(second)

	hub.Unregister(first)
	if !hub.IsConnected("alice") {
		t.Fatalf("expected alice to stay connected through the second session")
	}

	hub.Unregister(second)
	if hub.IsConnected("alice") {
		t.Fatalf("expected alice to be disconnected")
	}
}

func TestHubUnregisterUnknownSessionIsNoop(t *testing.T) {
	hub := NewHub()
	hub.Unregister(&Session{ID: "s1", Username: "ghost"})

	if hub.IsConnected("ghost") {
		t.Fatalf("expected ghost to be disconnected")
	}
}
