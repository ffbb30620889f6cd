package utils

import "strings"

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Truncate returns s on one line, cut to at most maxRunes runes with "..."
// appended when anything was dropped. Multi-byte characters are never split.
func Truncate(s string, maxRunes int) string {
	s = lineBreaks.Replace(s)
	if maxRunes < 0 {
		maxRunes = 0
	}

	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
