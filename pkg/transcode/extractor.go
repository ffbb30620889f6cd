package transcode

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/papercomputeco/chatrelay/pkg/utils"
)

// StreamPaths is the priority order used to find the text delta in one
// streaming record. The first path that is present and not null wins.
var StreamPaths = []string{
	"choices.0.delta.content", // OpenAI chat completion chunk
	"delta.content",
	"content",
	"text",
}

// FallbackPaths is the priority order used for a complete, non-streaming
// upstream payload.
var FallbackPaths = []string{
	"message",
	"content",
	"text",
	"choices.0.message.content",
}

// FallbackDefault is the reply used when a non-streaming payload carries none
// of the FallbackPaths.
const FallbackDefault = "I received your message."

// Extractor resolves a text value from a JSON record by trying an ordered
// list of gjson paths.
type Extractor struct {
	paths []string
}

// NewExtractor returns an Extractor that tries paths in the given order.
func NewExtractor(paths ...string) *Extractor {
	return &Extractor{paths: slices.Clone(paths)}
}

// NewStreamExtractor returns an Extractor over StreamPaths.
func NewStreamExtractor() *Extractor {
	return NewExtractor(StreamPaths...)
}

// Paths returns a copy of the configured path order.
func (e *Extractor) Paths() []string {
	return slices.Clone(e.paths)
}

// Extract returns the delta carried by record, or "" when the record is
// blank or carries none of the paths. A record that is not JSON yields "" and
// an error wrapping ErrMalformedRecord.
func (e *Extractor) Extract(record string) (string, error) {
	if strings.TrimSpace(record) == "" {
		return "", nil
	}

	if !gjson.Valid(record) {
		return "", fmt.Errorf("%w: %q", ErrMalformedRecord, utils.Truncate(record, 64))
	}

	return e.Resolve(gjson.Parse(record)), nil
}

// Resolve walks the path list over an already parsed document and stops at
// the first path that is present and not null. Strings are returned unquoted;
// numbers, booleans, objects and arrays as their raw JSON text.
func (e *Extractor) Resolve(doc gjson.Result) string {
	for _, path := range e.paths {
		v := doc.Get(path)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if v.Type == gjson.String {
			return v.Str
		}
		return v.Raw
	}
	return ""
}

// ExtractBytes is Extract for a complete payload. An empty payload is
// malformed.
func (e *Extractor) ExtractBytes(payload []byte) (string, error) {
	if !gjson.ValidBytes(payload) {
		return "", fmt.Errorf("%w: %q", ErrMalformedRecord, utils.Truncate(string(payload), 64))
	}
	return e.Resolve(gjson.ParseBytes(payload)), nil
}
