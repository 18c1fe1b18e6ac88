package extraction

import (
	"context"
	"errors"
	"strings"
	"unicode"

	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/normalization"
	"github.com/tessella/tessella-backend/internal/platform/envutil"
	"github.com/tessella/tessella-backend/internal/platform/logger"
)

// ErrTransient marks an extraction failure worth retrying before degrading
// to the deterministic fallback.
var ErrTransient = errors.New("transient extraction failure")

// Result is one extraction pass over a segmented document. ConsumedTier
// reports which budget tier the extractor actually used, which may be lower
// than the tier it was offered.
type Result struct {
	Candidates   []types.CandidateConcept
	ConsumedTier string
}

// Extractor turns segments into candidate concepts. LLM-backed extractors
// live behind this interface in the extraction subsystem; this package owns
// only the free deterministic tier.
type Extractor interface {
	Extract(ctx context.Context, segments []types.Segment, tier string) (*Result, error)
}

// FallbackExtractor is the NO_LLM extractor: capitalized-phrase heuristics
// with no external calls. It is the floor every document can afford.
type FallbackExtractor struct {
	log *logger.Logger

	windowTokens  int
	minConfidence float64
}

func NewFallbackExtractor(baseLog *logger.Logger) *FallbackExtractor {
	return &FallbackExtractor{
		log:           baseLog.With("component", "FallbackExtractor"),
		windowTokens:  envutil.Int("EXTRACTION_WINDOW_TOKENS", 12),
		minConfidence: envutil.Float("EXTRACTION_MIN_CONFIDENCE", 0.30),
	}
}

func (f *FallbackExtractor) Extract(ctx context.Context, segments []types.Segment, tier string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type seen struct {
		display  string
		typeHint string
		mentions []types.Mention
		firstSeg int
	}
	found := map[string]*seen{}

	for _, seg := range segments {
		tokens := strings.Fields(seg.Text)
		for start := 0; start < len(tokens); {
			phrase, width := capitalizedPhrase(tokens, start)
			if width == 0 {
				start++
				continue
			}
			key := normalization.Key(phrase)
			if key == "" || stopPhrase(key) {
				start += width
				continue
			}
			s, ok := found[key]
			if !ok {
				s = &seen{display: phrase, typeHint: guessType(phrase), firstSeg: seg.Index}
				found[key] = s
			}
			s.mentions = append(s.mentions, types.Mention{
				SegmentIndex: seg.Index,
				TokenOffset:  start,
				Window:       window(tokens, start, width, f.windowTokens),
			})
			start += width
		}
	}

	var candidates []types.CandidateConcept
	for _, s := range found {
		conf := f.confidence(s.display, len(s.mentions))
		if conf < f.minConfidence {
			continue
		}
		candidates = append(candidates, types.CandidateConcept{
			Name:         s.display,
			TypeHint:     s.typeHint,
			Confidence:   conf,
			SegmentIndex: s.firstSeg,
			Mentions:     s.mentions,
		})
	}
	f.log.Debug("fallback extraction done", "segments", len(segments), "candidates", len(candidates))
	return &Result{Candidates: candidates, ConsumedTier: types.TierNoLLM}, nil
}

// capitalizedPhrase greedily consumes a run of capitalized or acronym-like
// tokens starting at start. Sentence-leading single words do not count on
// their own; a phrase of one token must look like a proper noun elsewhere
// too, which frequency later rewards.
func capitalizedPhrase(tokens []string, start int) (string, int) {
	width := 0
	for start+width < len(tokens) && isNameToken(tokens[start+width]) {
		tok := tokens[start+width]
		width++
		if width >= 5 {
			break
		}
		// A sentence boundary ends the phrase even when the next token is
		// capitalized.
		if strings.HasSuffix(tok, ".") || strings.HasSuffix(tok, "!") || strings.HasSuffix(tok, "?") {
			break
		}
	}
	if width == 0 {
		return "", 0
	}
	parts := make([]string, width)
	for i := 0; i < width; i++ {
		parts[i] = strings.Trim(tokens[start+i], ".,;:()[]{}\"'")
	}
	phrase := strings.TrimSpace(strings.Join(parts, " "))
	if phrase == "" {
		return "", 0
	}
	return phrase, width
}

func isNameToken(token string) bool {
	trimmed := strings.Trim(token, ".,;:()[]{}\"'")
	if trimmed == "" {
		return false
	}
	runes := []rune(trimmed)
	if !unicode.IsUpper(runes[0]) && !unicode.IsDigit(runes[0]) {
		return false
	}
	// Reject shouting sentences: pure punctuation-free all-caps tokens are
	// fine (acronyms), mixed junk is not.
	for _, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '/' && r != '-' && r != '.' && r != '&' {
			return false
		}
	}
	return true
}

var stopPhrases = map[string]bool{
	"the": true, "a": true, "an": true, "this": true, "that": true,
	"it": true, "we": true, "i": true, "in": true, "on": true, "at": true,
	"our": true, "my": true, "his": true, "her": true, "their": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
	"january": true, "february": true, "march": true, "april": true,
	"may": true, "june": true, "july": true, "august": true,
	"september": true, "october": true, "november": true, "december": true,
}

func stopPhrase(key string) bool {
	if stopPhrases[key] {
		return true
	}
	// Single short lowercase-looking keys are sentence starts, not names.
	return len(key) < 2
}

func guessType(phrase string) string {
	upper := strings.ToUpper(phrase)
	switch {
	case strings.Contains(upper, "GMBH"), strings.Contains(upper, "INC"), strings.Contains(upper, "LTD"), strings.Contains(upper, "CORP"):
		return "ORGANIZATION"
	case strings.ContainsAny(phrase, "/-") && strings.ContainsAny(phrase, "0123456789"):
		return "PRODUCT"
	default:
		return ""
	}
}

func (f *FallbackExtractor) confidence(display string, mentions int) float64 {
	conf := 0.35
	if len(strings.Fields(display)) > 1 {
		conf += 0.15
	}
	if mentions > 1 {
		conf += 0.10
	}
	if mentions > 3 {
		conf += 0.10
	}
	if conf > 0.70 {
		conf = 0.70
	}
	return conf
}

func window(tokens []string, start, width, radius int) string {
	lo := start - radius
	if lo < 0 {
		lo = 0
	}
	hi := start + width + radius
	if hi > len(tokens) {
		hi = len(tokens)
	}
	return strings.Join(tokens[lo:hi], " ")
}
