package canonical

import (
	"strings"
	"unicode"

	"github.com/tessella/tessella-backend/internal/normalization"
)

// Structural match methods, recorded in decision trace metadata.
const (
	matchMethodAcronym     = "acronym"
	matchMethodTokenSubset = "token_subset"
	matchMethodEditDistance = "edit_distance"
)

type fuzzyResult struct {
	method string
	score  float64
}

// matchStructural compares a raw name against one catalog canonical name
// and returns the best structural signal, or ok=false when nothing clears
// the floor. Scores stay strictly below 1.0: only an ontology hit is exact.
func matchStructural(rawName string, canonicalName string) (fuzzyResult, bool) {
	raw := normalization.Key(rawName)
	canon := normalization.Key(canonicalName)
	if raw == "" || canon == "" {
		return fuzzyResult{}, false
	}
	if raw == canon {
		return fuzzyResult{method: matchMethodEditDistance, score: 0.95}, true
	}

	best := fuzzyResult{}
	if score, ok := acronymScore(raw, canon); ok && score > best.score {
		best = fuzzyResult{method: matchMethodAcronym, score: score}
	}
	if score, ok := tokenSubsetScore(raw, canon); ok && score > best.score {
		best = fuzzyResult{method: matchMethodTokenSubset, score: score}
	}
	if score, ok := editDistanceScore(raw, canon); ok && score > best.score {
		best = fuzzyResult{method: matchMethodEditDistance, score: score}
	}

	if best.score <= 0 {
		return fuzzyResult{}, false
	}
	return best, true
}

// acronymScore accepts short compacted forms ("S4H" against "SAP S/4HANA"):
// every character of the compacted raw name must appear, in order, in the
// compacted canonical name, and the first characters must agree.
func acronymScore(raw string, canon string) (float64, bool) {
	compactRaw := compact(raw)
	compactCanon := compact(canon)
	if len(compactRaw) < 2 || len(compactRaw) > 8 {
		return 0, false
	}
	if len(compactCanon) <= len(compactRaw) {
		return 0, false
	}
	if compactRaw[0] != compactCanon[0] {
		return 0, false
	}
	if !isSubsequence(compactRaw, compactCanon) {
		return 0, false
	}
	// Denser coverage of the canonical form scores higher.
	coverage := float64(len(compactRaw)) / float64(len(compactCanon))
	score := 0.74 + 0.14*coverage
	if score > 0.88 {
		score = 0.88
	}
	return score, true
}

// tokenSubsetScore accepts names whose tokens are wholly contained in the
// canonical name's tokens, e.g. "s/4hana cloud" against "sap s/4hana cloud".
func tokenSubsetScore(raw string, canon string) (float64, bool) {
	rawTokens := strings.Fields(raw)
	canonTokens := strings.Fields(canon)
	if len(rawTokens) == 0 || len(canonTokens) == 0 {
		return 0, false
	}
	if len(rawTokens) >= len(canonTokens) {
		return 0, false
	}
	canonSet := map[string]bool{}
	for _, t := range canonTokens {
		canonSet[t] = true
	}
	for _, t := range rawTokens {
		if !canonSet[t] {
			return 0, false
		}
	}
	coverage := float64(len(rawTokens)) / float64(len(canonTokens))
	return 0.72 + 0.16*coverage, true
}

// editDistanceScore tolerates minor typos, with tolerance scaled to name
// length so short names stay strict.
func editDistanceScore(raw string, canon string) (float64, bool) {
	longer := len(raw)
	if len(canon) > longer {
		longer = len(canon)
	}
	if longer == 0 {
		return 0, false
	}
	tolerance := longer / 5
	if tolerance < 1 {
		tolerance = 1
	}
	dist := levenshtein(raw, canon)
	if dist > tolerance {
		return 0, false
	}
	similarity := 1 - float64(dist)/float64(longer)
	score := 0.70 + 0.24*similarity
	if score > 0.94 {
		score = 0.94
	}
	return score, true
}

func compact(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func isSubsequence(needle string, haystack string) bool {
	i := 0
	for j := 0; j < len(haystack) && i < len(needle); j++ {
		if needle[i] == haystack[j] {
			i++
		}
	}
	return i == len(needle)
}

func levenshtein(a string, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,
				curr[j-1]+1,
				prev[j-1]+cost,
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
