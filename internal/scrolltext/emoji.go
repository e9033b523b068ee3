package scrolltext

import "strings"

// Code points that join or modify an emoji base into a longer cluster.
const (
	runeZWJ               = '‍'
	runeVariationSelector = '️'
	runeCombiningKeycap   = '⃣'
)

// SplitEmoji strips a leading emoji cluster off a line of text. Clusters
// of up to four code points are tried longest first, so joined and
// modified emoji are caught before their single-rune prefix.
func SplitEmoji(line string) (emoji, rest string) {
	runes := []rune(line)
	max := 4
	if len(runes) < max {
		max = len(runes)
	}
	for i := max; i > 0; i-- {
		if isEmojiCluster(runes[:i]) {
			return string(runes[:i]), strings.TrimSpace(string(runes[i:]))
		}
	}
	return "", line
}

func isEmojiCluster(runes []rune) bool {
	if len(runes) == 0 || !isEmojiBase(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if !isEmojiBase(r) && !isEmojiJoiner(r) {
			return false
		}
	}
	return true
}

func isEmojiJoiner(r rune) bool {
	switch r {
	case runeZWJ, runeVariationSelector, runeCombiningKeycap:
		return true
	}
	// Skin tone modifiers.
	return r >= 0x1F3FB && r <= 0x1F3FF
}

// isEmojiBase covers the pictographic ranges that start an emoji
// cluster. Plain letters, digits and punctuation are excluded so
// ordinary headings keep their first word.
func isEmojiBase(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1F5FF: // symbols & pictographs
		return true
	case r >= 0x1F600 && r <= 0x1F64F: // emoticons
		return true
	case r >= 0x1F680 && r <= 0x1F6FF: // transport & map
		return true
	case r >= 0x1F900 && r <= 0x1F9FF: // supplemental symbols
		return true
	case r >= 0x1FA70 && r <= 0x1FAFF: // extended symbols
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF: // regional indicators
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols & dingbats
		return true
	case r >= 0x2B00 && r <= 0x2BFF: // arrows & stars, includes U+2B50
		return true
	}
	return false
}
