package extraction

import (
	"strings"

	types "github.com/tessella/tessella-backend/internal/domain"
)

// SegmentDocument splits raw document text into segments on blank lines,
// carrying the nearest preceding heading into each segment. Headings are
// markdown-style hash lines, short all-caps lines, or short lines ending
// with a colon.
func SegmentDocument(text string) []types.Segment {
	var segments []types.Segment
	heading := ""
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		body := strings.TrimSpace(strings.Join(current, "\n"))
		current = nil
		if body == "" {
			return
		}
		segments = append(segments, types.Segment{
			Index:   len(segments),
			Text:    body,
			Heading: heading,
		})
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if h, ok := headingText(trimmed); ok {
			flush()
			heading = h
			continue
		}
		current = append(current, trimmed)
	}
	flush()
	return segments
}

func headingText(line string) (string, bool) {
	if strings.HasPrefix(line, "#") {
		return strings.TrimSpace(strings.TrimLeft(line, "# ")), true
	}
	if len(line) > 80 {
		return "", false
	}
	if strings.HasSuffix(line, ":") && len(strings.Fields(line)) <= 8 {
		return strings.TrimSuffix(line, ":"), true
	}
	if isAllCaps(line) && len(strings.Fields(line)) <= 8 {
		return line, true
	}
	return "", false
}

func isAllCaps(line string) bool {
	hasLetter := false
	for _, r := range line {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}
