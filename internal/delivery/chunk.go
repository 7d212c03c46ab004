package delivery

import (
	"strings"
	"unicode/utf8"
)

// Split breaks msg into fragments of at most limit bytes on space
// boundaries. The boundary space is dropped, so joining the fragments with
// a single space restores msg exactly. A word longer than limit is never
// cut and becomes an oversized fragment of its own. An empty msg yields no
// fragments.
func Split(msg string, limit int) []string {
	if msg == "" {
		return nil
	}
	if limit <= 0 || len(msg) <= limit {
		return []string{msg}
	}

	var fragments []string
	start := 0 // start of the open fragment
	end := -1  // end of the last word accepted into it, -1 when none yet
	pos := 0
	for pos <= len(msg) {
		next := strings.IndexByte(msg[pos:], ' ')
		wordEnd := len(msg)
		if next >= 0 {
			wordEnd = pos + next
		}

		if end >= 0 && wordEnd-start > limit {
			fragments = append(fragments, msg[start:end])
			start = end + 1
		}
		end = wordEnd
		pos = wordEnd + 1
	}
	return append(fragments, msg[start:])
}

// Truncate cuts msg to at most limit bytes without splitting a UTF-8 rune.
func Truncate(msg string, limit int) string {
	if limit <= 0 || len(msg) <= limit {
		return msg
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
