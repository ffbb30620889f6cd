// Package header provides header handling for the chat relay.
//
// The relay sits between a chat client and the chat backend like so:
//
//	Client <--> Relay <--> Chat backend
//
// and each leg negotiates its own headers: the relay rewrites the body on
// the way down, so little of what the backend sends survives verbatim.
package header

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	// RequestIDHeader carries the relay's request id to the backend and back
	// to the client.
	RequestIDHeader = "X-Request-ID"

	// TokenContentType is the content type of a transcoded token stream.
	TokenContentType = "text/plain; charset=utf-8"

	// EventStreamContentType is the content type of the pass-through route.
	EventStreamContentType = "text/event-stream"

	bearerPrefix = "Bearer "
)

// Handler manages headers between relay connections.
type Handler struct{}

// NewHandler creates a new header Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// skipRequest is the set of client request headers (client --> relay --> backend)
// that are not forwarded to the backend. The relay sets its own values for
// the ones describing the body and the credential.
var skipRequest = map[string]struct{}{
	// Hop-by-hop headers: only meaningful for a single transport-level connection.
	"Connection": {},

	// The Host header is rewritten by Go's http.Transport to match the
	// backend URL.
	"Host": {},

	// Accept-Encoding is stripped so that Go's http.Transport adds its own
	// "Accept-Encoding: gzip" and transparently decompresses the response.
	"Accept-Encoding": {},

	// The relay builds a new body.
	"Content-Length": {},
	"Content-Type":   {},
	"Accept":         {},

	// The credential is re-issued from the parsed bearer token.
	"Authorization": {},
	"Cookie":        {},

	"X-Request-Id": {},
}

// SetUpstreamRequestHeaders copies request headers from the Fiber context to
// the outgoing http.Request, filtering headers that the relay should not
// forward to the backend.
func (h *Handler) SetUpstreamRequestHeaders(c *fiber.Ctx, req *http.Request) {
	c.Request().Header.VisitAll(func(key, value []byte) {
		k := http.CanonicalHeaderKey(string(key))
		if _, skip := skipRequest[k]; !skip {
			req.Header.Set(k, string(value))
		}
	})
}

// SetUpstreamAuth sets the headers every backend call carries.
func (h *Handler) SetUpstreamAuth(req *http.Request, token, requestID string) {
	req.Header.Set("Authorization", bearerPrefix+token)
	req.Header.Set("Accept", EventStreamContentType)
	if requestID != "" {
		req.Header.Set(RequestIDHeader, requestID)
	}
}

// SetStreamHeaders marks the client response as an uncached stream of
// contentType.
func (h *Handler) SetStreamHeaders(c *fiber.Ctx, contentType string) {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "no-cache")
}

// BearerToken returns the credential from an Authorization header value, or
// "" when none is present.
func BearerToken(authorization string) string {
	v := strings.TrimSpace(authorization)
	if v == strings.TrimSpace(bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(v, bearerPrefix))
}

// IsStreaming reports whether a backend content type announces a stream.
func IsStreaming(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/event-stream") || strings.Contains(ct, "application/x-ndjson")
}
