package ws

import (
	"context"
	"log"
	"time"

	"chat-service/internal/observability"
)

// connectionEventPayload is the audit record for connection lifecycle events.
type connectionEventPayload struct {
	ConnectionID string    `json:"connection_id"`
	Username     string    `json:"username"`
	DeviceID     string    `json:"device_id,omitempty"`
	IP           string    `json:"ip,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// publishConnectionEvent emits a ws_connect/ws_disconnect audit event.
// Failures are logged and never surfaced to the connection.
func publishConnectionEvent(ctx context.Context, session *Session, eventName, reason string) {
	envelope := observability.EventEnvelope{
		EventType: "ws",
		EventName: eventName,
		Payload: connectionEventPayload{
			ConnectionID: session.ID,
			Username:     session.Username,
			DeviceID:     session.DeviceID,
			IP:           session.IP,
			Reason:       reason,
			Timestamp:    time.Now().UTC(),
		},
	}

	headers := observability.CorrelationHeaders(session.RequestID, session.TraceID)
	if err := observability.PublishEvent(ctx, "ws_events.connections", envelope, headers); err != nil {
		log.Printf("publish %s event failed user=%s: %v", eventName, session.Username, err)
	}
}
