package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/chatrelay/pkg/eventstream"
)

// MockPublisher is a test eventstream publisher that records published events.
type MockPublisher struct {
	mu     sync.Mutex
	events []*eventstream.TranscriptRecordedEvent

	// FailPublish causes PublishTranscript to return an error.
	FailPublish bool

	// Closed is set by Close.
	Closed bool
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishTranscript(_ context.Context, event *eventstream.TranscriptRecordedEvent) error {
	if event == nil {
		return eventstream.ErrNilTranscriptEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailPublish {
		return errors.New("mock publish failure")
	}
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of the published events.
func (m *MockPublisher) Events() []*eventstream.TranscriptRecordedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*eventstream.TranscriptRecordedEvent(nil), m.events...)
}

func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}
