// Package render formats text for terminal output.
package render

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// Sanitize drops control characters (tabs survive) and invalid UTF-8, and
// turns non-breaking spaces into plain ones. Player metadata is not trusted
// to be printable.
func Sanitize(s string) string {
	if !needsSanitize(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size <= 1:
		case r == '\u00a0':
			b.WriteByte(' ')
		case r != '\t' && unicode.IsControl(r):
		default:
			b.WriteString(s[i : i+size])
		}
		i += max(size, 1)
	}
	return b.String()
}

func needsSanitize(s string) bool {
	for i := range len(s) {
		c := s[i]
		if c < 0x20 && c != '\t' || c == 0x7f {
			return true
		}
		if c >= 0x80 && c <= 0x9f {
			return true
		}
		if c == 0xc2 && i+1 < len(s) && (s[i+1] == 0xa0 || s[i+1] >= 0x80 && s[i+1] <= 0x9f) {
			return true
		}
		if c >= 0xc0 && !utf8.ValidString(s[i:]) {
			return true
		}
	}
	return false
}

// Truncate shortens s to maxWidth terminal cells, ending in "..." when cut.
func Truncate(s string, maxWidth int) string {
	return runewidth.Truncate(Sanitize(s), maxWidth, "...")
}

// Column truncates s and pads it so it occupies exactly width cells.
func Column(s string, width int) string {
	return runewidth.FillRight(Truncate(s, width), width)
}

// Wrap hard-wraps s at width cells, keeping escape sequences intact.
// A non-positive width leaves s unchanged.
func Wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return ansi.Hardwrap(s, width, true)
}

// Rule returns a horizontal line width cells wide.
func Rule(width int) string {
	return strings.Repeat("─", max(width, 0))
}
