package scrolltext

import (
	"html/template"
	"strings"
)

// renderInline converts inline markup on one line into sanitized HTML.
// Escaping runs first so the substitution passes only ever see escaped
// text. Pass order: code, bold, italic.
func renderInline(line string) template.HTML {
	s := template.HTMLEscapeString(line)
	s = replaceInline(s, '`', "<code>", "</code>", false)
	s = replaceInline(s, '*', "<b>", "</b>", true)
	s = replaceInline(s, '_', "<i>", "</i>", true)
	return template.HTML(s)
}

// replaceInline rewrites delimited spans of s with the given tags. A
// span's content must be non-empty, contain no delimiter, and start and
// end with a non-whitespace character. With excludeDoubled set, a
// doubled delimiter never opens or closes a span, so "**text**" is left
// alone while "*text*" converts.
func replaceInline(s string, delim byte, openTag, closeTag string, excludeDoubled bool) string {
	var b strings.Builder
	i := 0
	for i < len(s) {
		if s[i] != delim {
			b.WriteByte(s[i])
			i++
			continue
		}

		open := i
		if excludeDoubled && (adjacentDelim(s, open-1, delim) || adjacentDelim(s, open+1, delim)) {
			// Skip the whole doubled run.
			for i < len(s) && s[i] == delim {
				b.WriteByte(s[i])
				i++
			}
			continue
		}

		close := findSpanClose(s, open, delim, excludeDoubled)
		if close < 0 {
			b.WriteByte(s[i])
			i++
			continue
		}

		b.WriteString(openTag)
		b.WriteString(s[open+1 : close])
		b.WriteString(closeTag)
		i = close + 1
	}
	return b.String()
}

// findSpanClose locates the closing delimiter for a span opened at open,
// or -1 when no valid close exists before the next delimiter.
func findSpanClose(s string, open int, delim byte, excludeDoubled bool) int {
	// Content must start with a non-whitespace character.
	if open+1 >= len(s) || s[open+1] == delim || isSpaceByte(s[open+1]) {
		return -1
	}

	for j := open + 2; j < len(s); j++ {
		if s[j] != delim {
			continue
		}
		if excludeDoubled && adjacentDelim(s, j+1, delim) {
			return -1
		}
		if isSpaceByte(s[j-1]) {
			return -1
		}
		return j
	}
	return -1
}

func adjacentDelim(s string, idx int, delim byte) bool {
	return idx >= 0 && idx < len(s) && s[idx] == delim
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t'
}
