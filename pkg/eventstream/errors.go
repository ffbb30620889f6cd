package eventstream

import (
	"errors"
	"fmt"
)

var (
	// ErrNilTranscriptEvent is returned by publishers handed a nil event.
	ErrNilTranscriptEvent = errors.New("nil transcript event")

	// ErrInvalidTranscriptEvent is returned for an event no consumer could
	// key or route.
	ErrInvalidTranscriptEvent = errors.New("invalid transcript event")
)

// Validate checks the fields every publisher relies on: the transcript id is
// the message key and the event type selects the consumer.
func Validate(event *TranscriptRecordedEvent) error {
	switch {
	case event == nil:
		return ErrNilTranscriptEvent
	case event.Transcript.ID == "":
		return fmt.Errorf("%w: missing transcript id", ErrInvalidTranscriptEvent)
	case event.EventType == "":
		return fmt.Errorf("%w: missing event type", ErrInvalidTranscriptEvent)
	}
	return nil
}
