// CLAUDE:SUMMARY Builds the set of separator spellings (clean, raw Latin-1, mojibake) and splits on the earliest one.
package actlog

import (
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// MiddleDot is the separator glyph between timestamp and XP on the page.
const MiddleDot = "·"

// replacementChar is what a lone Latin-1 0xB7 byte becomes once a decoder
// has replaced it.
const replacementChar = "�"

// Separators lists every recognised spelling of the separator, longest
// first. Besides the clean glyph it holds the glyph's raw Latin-1 byte
// (0xB7) and the mojibake produced when the glyph's UTF-8 bytes are
// mis-decoded as Windows-1252 or ISO-8859-1, once and twice ("Â·", "Ã‚Â·").
var Separators = buildSeparators(MiddleDot, 2, charmap.Windows1252, charmap.ISO8859_1)

func buildSeparators(glyph string, depth int, codecs ...encoding.Encoding) []string {
	seen := map[string]bool{glyph: true, replacementChar: true}
	out := []string{glyph, replacementChar}

	if b, err := charmap.ISO8859_1.NewEncoder().String(glyph); err == nil && !seen[b] {
		seen[b] = true
		out = append(out, b)
	}

	level := []string{glyph}
	for i := 0; i < depth; i++ {
		var next []string
		for _, s := range level {
			for _, c := range codecs {
				m, err := c.NewDecoder().String(s)
				if err != nil || seen[m] {
					continue
				}
				seen[m] = true
				out = append(out, m)
				next = append(next, m)
			}
		}
		level = next
	}

	slices.SortStableFunc(out, func(a, b string) int { return len(b) - len(a) })
	return out
}

// splitFirst splits text on the earliest recognised separator. When two
// spellings start at the same index, the longer one wins.
func splitFirst(text string, seps []string) (before, after string, ok bool) {
	at, width := -1, 0
	for _, sep := range seps {
		i := indexOnBoundary(text, sep)
		if i < 0 {
			continue
		}
		if at < 0 || i < at || (i == at && len(sep) > width) {
			at, width = i, len(sep)
		}
	}
	if at < 0 {
		return "", "", false
	}
	return text[:at], text[at+width:], true
}

// indexOnBoundary is strings.Index restricted to matches that start on a
// character boundary, so the bare 0xB7 byte is never found inside a valid
// UTF-8 sequence such as "з" (d0 b7).
func indexOnBoundary(text, sep string) int {
	off := 0
	for off <= len(text) {
		i := strings.Index(text[off:], sep)
		if i < 0 {
			return -1
		}
		i += off
		if onBoundary(text, i) {
			return i
		}
		off = i + 1
	}
	return -1
}

func onBoundary(s string, i int) bool {
	if utf8.RuneStart(s[i]) {
		return true
	}
	for j := i - 1; j >= 0 && j > i-utf8.UTFMax; j-- {
		if utf8.RuneStart(s[j]) {
			r, size := utf8.DecodeRuneInString(s[j:])
			return (r == utf8.RuneError && size == 1) || j+size <= i
		}
	}
	return true
}
