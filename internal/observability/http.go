package observability

import (
	"net"
	"net/http"
	"strings"
)

// Request metadata headers attached by clients and edge proxies.
const (
	headerDeviceID  = "X-Device-Id"
	headerRequestID = "X-Request-Id"
)

// ClientDeviceID returns the device identifier the client sent, if any.
func ClientDeviceID(r *http.Request) string {
	return r.Header.Get(headerDeviceID)
}

// ClientRequestID returns the edge-assigned request id, if any.
func ClientRequestID(r *http.Request) string {
	return r.Header.Get(headerRequestID)
}

// ClientIP resolves the originating client address, preferring the first
// X-Forwarded-For hop over the socket peer.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
