package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when a transcript does not exist.
	ErrNotFound = errors.New("transcript not found")

	// ErrConflict is returned when a transcript with the given ID already exists.
	ErrConflict = errors.New("transcript already exists")

	// ErrInvalidTranscript is returned by Put for a nil or incomplete transcript.
	ErrInvalidTranscript = errors.New("invalid transcript")
)
