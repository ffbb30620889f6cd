// Package storage persists relay transcripts. A transcript records one
// finished exchange: what the client sent, what was forwarded back and how
// the stream ended.
package storage

import (
	"context"
)

// DefaultListLimit applies when List is called with a non-positive limit.
const DefaultListLimit = 50

// Driver defines the interface for persisting and retrieving transcripts.
type Driver interface {
	// Put stores a transcript. It returns ErrConflict when a transcript with
	// the same ID already exists.
	Put(ctx context.Context, t *Transcript) error

	// Get retrieves a transcript by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Transcript, error)

	// List returns up to limit transcripts, most recently started first.
	List(ctx context.Context, limit int) ([]*Transcript, error)

	// Close releases any resources held by the driver.
	Close() error
}

// NormalizeLimit maps a non-positive limit to DefaultListLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
