// ABOUTME: Grapheme-aware width, truncation, and single-line previews
// ABOUTME: Used for log previews of NPC messages and for fitting URLs into the auth panel

package textutil

import (
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// Ellipsis is appended to truncated text.
const Ellipsis = "…"

// Width returns the display width of s in terminal cells.
func Width(s string) int {
	if isPlainASCII(s) {
		return len(s)
	}
	w := 0
	state := -1
	for len(s) > 0 {
		var cluster string
		cluster, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		w += graphemeWidth(cluster)
	}
	return w
}

// Truncate shortens s to at most maxCols cells, ending in Ellipsis when
// anything was cut. Grapheme clusters are never split.
func Truncate(s string, maxCols int) string {
	if maxCols <= 0 {
		return ""
	}
	if Width(s) <= maxCols {
		return s
	}

	limit := maxCols - uniseg.StringWidth(Ellipsis)
	var b strings.Builder
	w := 0
	state := -1
	for len(s) > 0 {
		var cluster string
		cluster, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		cw := graphemeWidth(cluster)
		if w+cw > limit {
			break
		}
		b.WriteString(cluster)
		w += cw
	}
	b.WriteString(Ellipsis)
	return b.String()
}

// Preview renders remote text as one sanitized line no wider than maxCols.
func Preview(s string, maxCols int) string {
	s = Sanitize(s)
	s = strings.Join(strings.Fields(s), " ")
	return Truncate(s, maxCols)
}

func isPlainASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if b := s[i]; b < 0x20 || b > 0x7e {
			return false
		}
	}
	return true
}

// graphemeWidth returns the display width of a single grapheme cluster.
func graphemeWidth(cluster string) int {
	if len(cluster) == 0 {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(cluster)
	return runewidth.RuneWidth(r)
}
