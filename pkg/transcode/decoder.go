package transcode

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Decoder reads tokens produced by Encode back into deltas. It is the client
// side of the protocol and is used by the chat command.
//
// Only \" is treated as an escape; a closing quote is a quote followed by a
// newline or by the end of the stream, so deltas may span lines.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next delta. It returns io.EOF once the stream ends
// cleanly between tokens and io.ErrUnexpectedEOF when it ends inside one.
func (d *Decoder) Next() (string, error) {
	if err := d.readMarker(); err != nil {
		return "", err
	}

	var sb strings.Builder
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return "", eofIsUnexpected(err)
		}

		switch b {
		case '\\':
			next, err := d.r.ReadByte()
			if err != nil {
				return "", eofIsUnexpected(err)
			}
			if next == '"' {
				sb.WriteByte('"')
				continue
			}
			sb.WriteByte('\\')
			_ = d.r.UnreadByte()

		case '"':
			next, err := d.r.ReadByte()
			if errors.Is(err, io.EOF) {
				return sb.String(), nil
			}
			if err != nil {
				return "", err
			}
			if next == '\n' {
				return sb.String(), nil
			}
			sb.WriteByte('"')
			_ = d.r.UnreadByte()

		default:
			sb.WriteByte(b)
		}
	}
}

// readMarker skips blank lines and consumes the `0:"` token prefix.
func (d *Decoder) readMarker() error {
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return err
		}
		if b == '\n' || b == '\r' {
			continue
		}

		prefix := make([]byte, len(Marker)+1)
		prefix[0] = b
		if _, err := io.ReadFull(d.r, prefix[1:]); err != nil {
			return eofIsUnexpected(err)
		}
		if string(prefix) != Marker+`"` {
			return fmt.Errorf("%w: unexpected prefix %q", ErrMalformedToken, prefix)
		}
		return nil
	}
}

func eofIsUnexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
