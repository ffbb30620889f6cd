package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/chatrelay/pkg/storage"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTranscriptRecorded is emitted after a transcript is persisted.
	EventTypeTranscriptRecorded = "chatrelay.transcript.recorded"
)

// TranscriptRecordedEvent is a transport-neutral event payload for a
// persisted transcript. It summarises the exchange; the reply text itself is
// only carried as a length.
type TranscriptRecordedEvent struct {
	SchemaVersion int               `json:"schema_version"`
	EventType     string            `json:"event_type"`
	EventID       string            `json:"event_id"`
	EmittedAt     time.Time         `json:"emitted_at"`
	Transcript    TranscriptSummary `json:"transcript"`
}

// TranscriptSummary captures request lifecycle metadata for the event.
type TranscriptSummary struct {
	ID          string         `json:"id"`
	RequestID   string         `json:"request_id"`
	Route       string         `json:"route"`
	Status      storage.Status `json:"status"`
	HTTPStatus  int            `json:"http_status"`
	Streaming   bool           `json:"streaming"`
	Messages    int            `json:"messages"`
	ReplyBytes  int            `json:"reply_bytes"`
	Records     int            `json:"records"`
	Tokens      int            `json:"tokens"`
	Skipped     int            `json:"skipped"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
	DurationMs  int64          `json:"duration_ms"`
}

// NewTranscriptRecordedEvent builds the event for t, stamped with now.
func NewTranscriptRecordedEvent(t *storage.Transcript, now time.Time) *TranscriptRecordedEvent {
	return &TranscriptRecordedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTranscriptRecorded,
		EventID:       uuid.NewString(),
		EmittedAt:     now.UTC(),
		Transcript: TranscriptSummary{
			ID:          t.ID,
			RequestID:   t.RequestID,
			Route:       t.Route,
			Status:      t.Status,
			HTTPStatus:  t.HTTPStatus,
			Streaming:   t.Streaming,
			Messages:    len(t.Messages),
			ReplyBytes:  len(t.Reply),
			Records:     t.Records,
			Tokens:      t.Tokens,
			Skipped:     t.Skipped,
			StartedAt:   t.StartedAt,
			CompletedAt: t.CompletedAt,
			DurationMs:  t.Duration().Milliseconds(),
		},
	}
}
