package transcode

import "strings"

// Marker prefixes every encoded token.
const Marker = "0:"

// Encode converts delta into one downstream token: the marker, the delta
// quoted with every double quote backslash-escaped, and a newline.
//
// An empty delta produces no token and ok is false.
func Encode(delta string) (token []byte, ok bool) {
	if delta == "" {
		return nil, false
	}

	escaped := strings.ReplaceAll(delta, `"`, `\"`)

	token = make([]byte, 0, len(Marker)+len(escaped)+3)
	token = append(token, Marker...)
	token = append(token, '"')
	token = append(token, escaped...)
	token = append(token, '"', '\n')

	return token, true
}
