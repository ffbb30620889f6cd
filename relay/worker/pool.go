// Package worker provides an asynchronous worker pool for persisting relay
// transcripts with the provided storage.Driver and announcing them with the
// provided eventstream.Publisher.
//
// The pool decouples storage operations from the relay's HTTP hot path so that
// a slow database never holds back a token stream.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/chatrelay/pkg/eventstream"
	"github.com/papercomputeco/chatrelay/pkg/storage"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Transcript *storage.Transcript
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the storage backend for persisting transcripts.
	Driver storage.Driver

	// Publisher is the optional event stream a stored transcript is announced on.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

// Pool processes storage jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool

	now func() time.Time
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Driver == nil {
		return nil, fmt.Errorf("worker pool requires a storage driver")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
		now:    time.Now,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	if job.Transcript == nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("job not queued, pool closed",
			"transcript_id", job.Transcript.ID,
		)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"transcript_id", job.Transcript.ID,
			"status", job.Transcript.Status,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"transcript_id", job.Transcript.ID,
			"status", job.Transcript.Status,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the relay HTTP server has stopped.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("storage worker stopped", "worker_id", id)
}

// processJob stores the transcript and, once it is durable, publishes the
// recorded event. Publish failures are logged only.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()
	t := job.Transcript

	if err := p.config.Driver.Put(ctx, t); err != nil {
		p.logger.Error("async transcript storage failed",
			"transcript_id", t.ID,
			"error", err,
		)
		return
	}

	p.logger.Info("transcript stored",
		"transcript_id", t.ID,
		"request_id", t.RequestID,
		"status", t.Status,
		"tokens", t.Tokens,
	)

	if p.config.Publisher == nil {
		return
	}

	event := eventstream.NewTranscriptRecordedEvent(t, p.now())
	if err := p.config.Publisher.PublishTranscript(ctx, event); err != nil {
		p.logger.Warn("failed to publish transcript event",
			"transcript_id", t.ID,
			"event_id", event.EventID,
			"error", err,
		)
	}
}
