package sse

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

const readerSize = 64 * 1024

// TeeReader parses events from src while every byte read from src is written
// to dest unchanged and as soon as it is read. Line endings, comments and
// incomplete trailing lines reach dest exactly as the source sent them.
//
// A write error on dest is returned by Next as a read error and stops the
// stream.
type TeeReader struct {
	r *bufio.Reader

	current Event
	hasData bool
}

// NewTeeReader returns a TeeReader copying src to dest.
func NewTeeReader(src io.Reader, dest io.Writer) *TeeReader {
	return &TeeReader{r: bufio.NewReaderSize(&tee{src: src, dest: dest}, readerSize)}
}

// tee is io.TeeReader except that bytes which could not be written to dest
// are not handed to the parser either.
type tee struct {
	src  io.Reader
	dest io.Writer
}

func (t *tee) Read(p []byte) (int, error) {
	n, err := t.src.Read(p)
	if n > 0 {
		if _, werr := t.dest.Write(p[:n]); werr != nil {
			return 0, werr
		}
	}
	return n, err
}

// Next blocks until the next event is dispatched by a blank line and returns
// it. An event left open when the source ends is returned as well. Next
// returns nil, nil once the source is exhausted.
func (r *TeeReader) Next() (*Event, error) {
	for {
		line, err := r.r.ReadString('\n')
		if line != "" {
			if ev := r.consume(strings.TrimRight(line, "\r\n")); ev != nil {
				return ev, nil
			}
		}

		if errors.Is(err, io.EOF) {
			return r.dispatch(), nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Drain reads the rest of the source, forwarding it to dest, and returns the
// number of events seen.
func (r *TeeReader) Drain() (int, error) {
	n := 0
	for {
		ev, err := r.Next()
		if err != nil {
			return n, err
		}
		if ev == nil {
			return n, nil
		}
		n++
	}
}

// consume applies one line and returns an event when the line dispatches it.
func (r *TeeReader) consume(line string) *Event {
	switch {
	case line == "":
		return r.dispatch()
	case strings.HasPrefix(line, ":"):
		return nil
	}

	field, value, _ := strings.Cut(line, ":")
	value = strings.TrimPrefix(value, " ")

	switch field {
	case "data":
		if r.hasData {
			r.current.Data += "\n"
		}
		r.current.Data += value
		r.hasData = true
	case "event":
		r.current.Type = value
	case "id":
		r.current.ID = value
	}
	return nil
}

// dispatch returns the pending event, or nil when no data was collected.
func (r *TeeReader) dispatch() *Event {
	if !r.hasData {
		r.current = Event{}
		return nil
	}

	ev := r.current
	r.current = Event{}
	r.hasData = false
	return &ev
}
