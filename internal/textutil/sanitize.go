// ABOUTME: Strips terminal escape sequences and control characters from remote text
// ABOUTME: Server-supplied strings pass through here before reaching logs or the terminal

package textutil

import "strings"

// Sanitize removes ANSI escape sequences and C0 control characters other
// than newline and tab. DEL is removed as well.
func Sanitize(s string) string {
	if isClean(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		c := s[i]
		if c == '\x1b' {
			i = skipEscape(s, i)
			continue
		}
		if (c < 0x20 && c != '\n' && c != '\t') || c == 0x7f {
			i++
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

func isClean(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 0x20 && c != '\n' && c != '\t') || c == 0x7f {
			return false
		}
	}
	return true
}

// skipEscape advances past an escape sequence starting at s[i] and returns
// the index of the first byte after it.
func skipEscape(s string, i int) int {
	i++ // ESC
	if i >= len(s) {
		return i
	}

	switch s[i] {
	case '[':
		// CSI: ESC [ ... final byte 0x40-0x7E
		for i++; i < len(s); i++ {
			if b := s[i]; b >= 0x40 && b <= 0x7e {
				return i + 1
			}
		}
		return i
	case ']', '_', 'P', '^':
		// OSC, APC, DCS, PM: terminated by ST; OSC may also end on BEL.
		osc := s[i] == ']'
		for i++; i < len(s); i++ {
			if osc && s[i] == '\x07' {
				return i + 1
			}
			if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '\\' {
				return i + 2
			}
		}
		return i
	case '(':
		return min(i+2, len(s))
	default:
		return i + 1
	}
}
