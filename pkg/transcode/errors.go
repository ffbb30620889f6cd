package transcode

import "errors"

var (
	// ErrMalformedRecord is returned by Extractor.Extract when a non-blank
	// record is not valid JSON. It is recoverable: the record contributes no
	// delta and the stream continues.
	ErrMalformedRecord = errors.New("malformed upstream record")

	// ErrDownstreamClosed is returned by Transcoder.Run when a token could not
	// be written to the downstream sink. No upstream reads happen after it.
	ErrDownstreamClosed = errors.New("downstream closed")

	// ErrMalformedToken is returned by Decoder.Next when the token stream does
	// not start with the expected marker.
	ErrMalformedToken = errors.New("malformed token")
)
