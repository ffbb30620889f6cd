// Package eventstream publishes transcript lifecycle events to an external
// stream. Publishing is best effort; the relay never fails a request because
// an event could not be delivered.
package eventstream

import "context"

// Publisher publishes transcript events to an event stream backend.
type Publisher interface {
	PublishTranscript(ctx context.Context, event *TranscriptRecordedEvent) error
	Close() error
}
