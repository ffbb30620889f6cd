package transcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/papercomputeco/chatrelay/pkg/logger"
	"github.com/papercomputeco/chatrelay/pkg/utils"
)

// readBufferSize is the size of a single upstream read.
const readBufferSize = 32 * 1024

// Skip reasons reported to an Observer.
const (
	SkipReasonMalformed = "malformed"
	SkipReasonEmpty     = "empty"
	SkipReasonTrailing  = "trailing"
)

// Observer receives per-record events from a running Transcoder.
// Implementations must be safe for concurrent use when one Transcoder serves
// several requests.
type Observer interface {
	TokenForwarded()
	RecordSkipped(reason string)
}

type nopObserver struct{}

func (nopObserver) TokenForwarded()      {}
func (nopObserver) RecordSkipped(string) {}

// Options configures a Transcoder.
type Options struct {
	// FlushTrailing extracts and forwards a final record that was not
	// terminated by a newline. When false such a record is discarded.
	FlushTrailing bool

	// Collect keeps the forwarded text in Result.Text.
	Collect bool

	Logger   *slog.Logger
	Observer Observer
}

// Result summarises one Run.
type Result struct {
	Fragments int
	Records   int
	Tokens    int

	// Skipped counts records that were not JSON.
	Skipped int

	// Discarded is the byte length of a trailing partial record that was
	// dropped at end of stream.
	Discarded int

	// Text is the concatenation of every forwarded delta, set only with
	// Options.Collect.
	Text string
}

// Transcoder converts an upstream NDJSON body into downstream tokens. A
// Transcoder holds configuration only; all per-stream state lives in Run, so
// one value may serve concurrent requests.
type Transcoder struct {
	flushTrailing bool
	collect       bool
	extractor     *Extractor
	logger        *slog.Logger
	observer      Observer
}

// NewTranscoder creates a Transcoder that extracts deltas with StreamPaths.
func NewTranscoder(opts Options) *Transcoder {
	t := &Transcoder{
		flushTrailing: opts.FlushTrailing,
		collect:       opts.Collect,
		extractor:     NewStreamExtractor(),
		logger:        opts.Logger,
		observer:      opts.Observer,
	}
	if t.logger == nil {
		t.logger = logger.Nop()
	}
	if t.observer == nil {
		t.observer = nopObserver{}
	}
	return t
}

// run holds the state of one Run invocation.
type run struct {
	t      *Transcoder
	dst    io.Writer
	result Result
	text   strings.Builder
}

// Run reads src until end of stream and writes one token to dst per non-empty
// delta, in arrival order. Every record completed by a read is forwarded
// before the next read.
//
// Run returns nil at a clean end of stream, ErrDownstreamClosed when a write
// to dst fails, ctx.Err() when ctx is cancelled between reads, and a wrapped
// error when src fails. In every case no further reads are issued after Run
// returns. The partial Result is returned alongside any error.
func (t *Transcoder) Run(ctx context.Context, src io.Reader, dst io.Writer) (Result, error) {
	r := &run{t: t, dst: dst}
	reassembler := NewReassembler()
	buf := make([]byte, readBufferSize)

	for {
		if err := ctx.Err(); err != nil {
			return r.finish(), err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			r.result.Fragments++
			for _, record := range reassembler.Feed(buf[:n]) {
				if err := r.forward(record); err != nil {
					return r.finish(), err
				}
			}
		}

		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			t.logger.Error("upstream read failed",
				"error", readErr,
				"fragments", r.result.Fragments,
				"tokens", r.result.Tokens,
			)
			return r.finish(), fmt.Errorf("reading upstream: %w", readErr)
		}
	}

	trailing := reassembler.Drain()
	if strings.TrimSpace(trailing) != "" {
		if t.flushTrailing {
			if err := r.forward(trailing); err != nil {
				return r.finish(), err
			}
		} else {
			r.result.Discarded = len(trailing)
			t.observer.RecordSkipped(SkipReasonTrailing)
			t.logger.Debug("discarding unterminated trailing record",
				"bytes", len(trailing),
				"preview", utils.Truncate(trailing, 64),
			)
		}
	}

	return r.finish(), nil
}

// forward runs one record through extraction and encoding and writes the
// resulting token.
func (r *run) forward(record string) error {
	if strings.TrimSpace(record) == "" {
		return nil
	}
	r.result.Records++

	delta, err := r.t.extractor.Extract(record)
	if err != nil {
		r.result.Skipped++
		r.t.observer.RecordSkipped(SkipReasonMalformed)
		r.t.logger.Warn("skipping upstream record", "error", err)
		return nil
	}

	token, ok := Encode(delta)
	if !ok {
		r.t.observer.RecordSkipped(SkipReasonEmpty)
		return nil
	}

	if _, err := r.dst.Write(token); err != nil {
		r.t.logger.Debug("downstream write failed",
			"error", err,
			"tokens", r.result.Tokens,
		)
		return fmt.Errorf("%w: %w", ErrDownstreamClosed, err)
	}

	r.result.Tokens++
	r.t.observer.TokenForwarded()
	if r.t.collect {
		r.text.WriteString(delta)
	}
	return nil
}

func (r *run) finish() Result {
	if r.t.collect {
		r.result.Text = r.text.String()
	}
	return r.result
}
