// Package inmemory is a map-backed storage.Driver. Transcripts live only as
// long as the process.
package inmemory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/papercomputeco/chatrelay/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu guards transcripts
	mu sync.RWMutex

	// transcripts is keyed by transcript ID
	transcripts map[string]*storage.Transcript
}

var _ storage.Driver = (*Driver)(nil)

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		transcripts: make(map[string]*storage.Transcript),
	}
}

// Put stores a copy of t.
func (d *Driver) Put(_ context.Context, t *storage.Transcript) error {
	if err := t.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.transcripts[t.ID]; ok {
		return storage.ErrConflict
	}

	d.transcripts[t.ID] = clone(t)
	return nil
}

// Get retrieves a transcript by ID.
func (d *Driver) Get(_ context.Context, id string) (*storage.Transcript, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	t, ok := d.transcripts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	return clone(t), nil
}

// List returns up to limit transcripts, most recently started first.
func (d *Driver) List(_ context.Context, limit int) ([]*storage.Transcript, error) {
	d.mu.RLock()
	result := make([]*storage.Transcript, 0, len(d.transcripts))
	for _, t := range d.transcripts {
		result = append(result, clone(t))
	}
	d.mu.RUnlock()

	slices.SortFunc(result, func(a, b *storage.Transcript) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	if limit = storage.NormalizeLimit(limit); len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

func clone(t *storage.Transcript) *storage.Transcript {
	c := *t
	c.Messages = slices.Clone(t.Messages)
	return &c
}
