package extraction

import (
	"strings"
	"unicode"

	types "github.com/tessella/tessella-backend/internal/domain"
)

// RequiredTier scores document complexity and returns the cheapest tier
// able to extract it faithfully. Attachments needing visual parsing force
// VISION regardless of text complexity.
func RequiredTier(segments []types.Segment, hasVisualContent bool) string {
	if hasVisualContent {
		return types.TierVision
	}

	tokens := 0
	longSentences := 0
	sentences := 0
	nonASCII := 0
	runes := 0
	for _, seg := range segments {
		tokens += len(strings.Fields(seg.Text))
		for _, sentence := range splitSentences(seg.Text) {
			sentences++
			if len(strings.Fields(sentence)) > 25 {
				longSentences++
			}
		}
		for _, r := range seg.Text {
			runes++
			if r > unicode.MaxASCII {
				nonASCII++
			}
		}
	}

	if tokens == 0 {
		return types.TierNoLLM
	}
	if tokens < 200 {
		return types.TierNoLLM
	}

	complexity := 0.0
	if sentences > 0 {
		complexity += float64(longSentences) / float64(sentences)
	}
	if runes > 0 {
		complexity += 2 * float64(nonASCII) / float64(runes)
	}
	if tokens > 3000 {
		complexity += 0.3
	}

	if complexity >= 0.5 {
		return types.TierBig
	}
	return types.TierSmall
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
}
