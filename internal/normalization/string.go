package normalization

import (
	"strings"
	"unicode"
)

// Key produces the normalized lookup key used across the alias index, the
// dedup cache and proto concept rows: lowercase, trimmed, inner whitespace
// collapsed to single spaces.
func Key(input string) string {
	lowered := strings.ToLower(strings.TrimSpace(input))
	if lowered == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(lowered))
	lastSpace := false
	for _, r := range lowered {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
			}
			lastSpace = true
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// TitleCase trims and title-cases each word, preserving words that already
// contain interior capitals ("macOS", "GmbH").
func TitleCase(input string) string {
	words := strings.Fields(strings.TrimSpace(input))
	for i, w := range words {
		if hasInteriorUpper(w) {
			continue
		}
		runes := []rune(strings.ToLower(w))
		if len(runes) > 0 {
			runes[0] = unicode.ToUpper(runes[0])
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func hasInteriorUpper(w string) bool {
	for i, r := range w {
		if i > 0 && unicode.IsUpper(r) {
			return true
		}
	}
	return false
}
