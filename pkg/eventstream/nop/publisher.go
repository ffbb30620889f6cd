// Package nop provides the publisher used when no event stream is configured.
package nop

import (
	"context"
	"sync/atomic"

	"github.com/papercomputeco/chatrelay/pkg/eventstream"
)

// Publisher validates events and drops them. Dropped reports how many were
// accepted, which lets tests assert that the relay emitted an event without
// running a broker.
type Publisher struct {
	dropped atomic.Int64
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) PublishTranscript(_ context.Context, event *eventstream.TranscriptRecordedEvent) error {
	if err := eventstream.Validate(event); err != nil {
		return err
	}
	p.dropped.Add(1)
	return nil
}

// Dropped returns the number of valid events received so far.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

func (p *Publisher) Close() error {
	return nil
}
