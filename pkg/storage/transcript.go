package storage

import (
	"fmt"
	"time"

	"github.com/papercomputeco/chatrelay/pkg/llm"
)

// Status is how a relayed exchange ended.
type Status string

const (
	// StatusCompleted means the upstream finished and everything was forwarded.
	StatusCompleted Status = "completed"

	// StatusClientGone means the downstream went away mid-stream.
	StatusClientGone Status = "client_gone"

	// StatusUpstreamError means the upstream refused the request, could not
	// be reached or failed mid-stream.
	StatusUpstreamError Status = "upstream_error"

	// StatusRejected means the request failed validation at the relay.
	StatusRejected Status = "rejected"
)

// Transcript is the record of one relayed chat exchange. It never carries the
// client's bearer token.
type Transcript struct {
	ID        string `json:"id"`
	RequestID string `json:"request_id"`
	Route     string `json:"route"`

	Messages []llm.Message `json:"messages"`

	// Reply is the text forwarded to the client.
	Reply string `json:"reply"`

	Status     Status `json:"status"`
	HTTPStatus int    `json:"http_status"`
	Error      string `json:"error,omitempty"`

	// Streaming is false when the upstream answered with a single payload.
	Streaming bool `json:"streaming"`

	Records int `json:"records"`
	Tokens  int `json:"tokens"`
	Skipped int `json:"skipped"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Duration is the wall time of the exchange.
func (t *Transcript) Duration() time.Duration {
	if t.CompletedAt.Before(t.StartedAt) {
		return 0
	}
	return t.CompletedAt.Sub(t.StartedAt)
}

// Validate reports whether t can be stored.
func (t *Transcript) Validate() error {
	switch {
	case t == nil:
		return fmt.Errorf("%w: nil", ErrInvalidTranscript)
	case t.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidTranscript)
	case t.Status == "":
		return fmt.Errorf("%w: missing status", ErrInvalidTranscript)
	case t.StartedAt.IsZero():
		return fmt.Errorf("%w: missing start time", ErrInvalidTranscript)
	}
	return nil
}
