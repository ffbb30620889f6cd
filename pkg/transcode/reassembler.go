package transcode

import (
	"bytes"
	"errors"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// scratchSize is the decode window used per Transform call.
const scratchSize = 4 * 1024

// Reassembler accumulates upstream fragments and yields complete,
// newline-terminated records. The trailing partial record is kept across
// calls until more bytes arrive or Drain is called.
//
// Fragments are decoded as UTF-8 on the way in: a multi-byte sequence split
// across two fragments is carried over intact, invalid bytes become U+FFFD
// and a leading byte order mark is dropped.
//
// A Reassembler belongs to exactly one stream and is not safe for concurrent
// use.
type Reassembler struct {
	decoder transform.Transformer

	// pending holds the bytes of an incomplete UTF-8 sequence at the tail of
	// the last fragment.
	pending []byte

	// buf holds decoded text after the last newline seen.
	buf []byte

	scratch [scratchSize]byte
}

// NewReassembler returns an empty Reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{
		decoder: unicode.UTF8BOM.NewDecoder(),
	}
}

// Feed appends fragment to the buffer and returns every complete record, in
// order, without its newline. The returned slice is empty when fragment did
// not complete a record.
func (r *Reassembler) Feed(fragment []byte) []string {
	r.decode(fragment, false)

	var records []string
	start := 0
	for {
		i := bytes.IndexByte(r.buf[start:], '\n')
		if i < 0 {
			break
		}
		records = append(records, string(r.buf[start:start+i]))
		start += i + 1
	}

	if start > 0 {
		n := copy(r.buf, r.buf[start:])
		r.buf = r.buf[:n]
	}

	return records
}

// Buffered returns the number of decoded bytes waiting for a newline.
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}

// Drain flushes the decoder, returns whatever partial record is left and
// resets the Reassembler. It is called once the upstream has ended; the
// leftover was never newline terminated.
func (r *Reassembler) Drain() string {
	r.decode(nil, true)

	rest := string(r.buf)
	r.buf = r.buf[:0]
	r.pending = nil
	r.decoder.Reset()

	return rest
}

func (r *Reassembler) decode(src []byte, atEOF bool) {
	if len(r.pending) > 0 {
		src = append(r.pending, src...)
		r.pending = nil
	}

	for {
		nDst, nSrc, err := r.decoder.Transform(r.scratch[:], src, atEOF)
		r.buf = append(r.buf, r.scratch[:nDst]...)
		src = src[nSrc:]

		switch {
		case err == nil:
			return
		case errors.Is(err, transform.ErrShortDst):
			continue
		case errors.Is(err, transform.ErrShortSrc):
			// src may alias the caller's read buffer.
			r.pending = append([]byte(nil), src...)
			return
		default:
			r.buf = append(r.buf, src...)
			return
		}
	}
}
