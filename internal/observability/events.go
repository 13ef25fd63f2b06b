package observability

// EventEnvelope is the wire shape of an audit event: a coarse type for
// routing, the specific event name, and the event's own payload.
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

// CorrelationHeaders builds the message headers tying an event back to the
// request and trace it originated from. Empty values are omitted.
func CorrelationHeaders(requestID, traceID string) map[string]string {
	headers := make(map[string]string, 2)
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
