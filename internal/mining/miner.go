package mining

import (
	"sort"

	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/normalization"
	"github.com/tessella/tessella-backend/internal/platform/envutil"
	"github.com/tessella/tessella-backend/internal/platform/logger"
)

// Miner derives relation candidates from co-occurrence inside segments.
// Pairs are unordered: (a, b) and (b, a) are the same relation, keyed with
// the lexically smaller name first.
type Miner struct {
	log *logger.Logger

	minConfidence   float64
	relatedDistance int
	maxPerSegment   int
}

func NewMiner(baseLog *logger.Logger) *Miner {
	return &Miner{
		log:             baseLog.With("component", "PatternMiner"),
		minConfidence:   envutil.Float("MINING_MIN_CONFIDENCE", 0.35),
		relatedDistance: envutil.Int("MINING_RELATED_DISTANCE", 5),
		maxPerSegment:   envutil.Int("MINING_MAX_PAIRS_PER_SEGMENT", 200),
	}
}

type mention struct {
	name   string
	offset int
}

type pairStats struct {
	a, b     string
	count    int
	minDist  int
	segment  int
}

// Mine walks every segment's mentions and emits one relation candidate per
// co-occurring unordered pair. Confidence grows with joint frequency and
// shrinks with token distance, capped at 1.0.
func (m *Miner) Mine(candidates []types.CandidateConcept) []types.RelationCandidate {
	bySegment := map[int][]mention{}
	displayName := map[string]string{}
	for _, cand := range candidates {
		key := normalization.Key(cand.Name)
		if key == "" {
			continue
		}
		if _, ok := displayName[key]; !ok {
			displayName[key] = cand.Name
		}
		if len(cand.Mentions) == 0 {
			bySegment[cand.SegmentIndex] = append(bySegment[cand.SegmentIndex], mention{name: key})
			continue
		}
		for _, mn := range cand.Mentions {
			bySegment[mn.SegmentIndex] = append(bySegment[mn.SegmentIndex], mention{name: key, offset: mn.TokenOffset})
		}
	}

	stats := map[[2]string]*pairStats{}
	for seg, mentions := range bySegment {
		pairsInSegment := 0
		for i := 0; i < len(mentions); i++ {
			for j := i + 1; j < len(mentions); j++ {
				if mentions[i].name == mentions[j].name {
					continue
				}
				if pairsInSegment >= m.maxPerSegment {
					break
				}
				a, b := mentions[i].name, mentions[j].name
				da, db := mentions[i].offset, mentions[j].offset
				if a > b {
					a, b = b, a
				}
				dist := da - db
				if dist < 0 {
					dist = -dist
				}
				key := [2]string{a, b}
				st, ok := stats[key]
				if !ok {
					st = &pairStats{a: a, b: b, minDist: dist, segment: seg}
					stats[key] = st
				}
				st.count++
				if dist < st.minDist {
					st.minDist = dist
				}
				pairsInSegment++
			}
		}
	}

	out := make([]types.RelationCandidate, 0, len(stats))
	for _, st := range stats {
		conf := m.confidence(st)
		if conf < m.minConfidence {
			continue
		}
		relType := types.RelationCoOccurrence
		if st.minDist > 0 && st.minDist <= m.relatedDistance {
			relType = types.RelationRelatedTo
		}
		out = append(out, types.RelationCandidate{
			SourceName:   displayName[st.a],
			TargetName:   displayName[st.b],
			Type:         relType,
			Confidence:   conf,
			SegmentIndex: st.segment,
		})
	}

	// Deterministic output order for stable downstream behavior.
	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceName != out[j].SourceName {
			return out[i].SourceName < out[j].SourceName
		}
		return out[i].TargetName < out[j].TargetName
	})
	m.log.Debug("mined relation candidates", "candidates", len(candidates), "relations", len(out))
	return out
}

// confidence blends joint frequency with proximity. Frequency saturates at
// five joint occurrences; proximity decays hyperbolically with the closest
// token distance seen for the pair.
func (m *Miner) confidence(st *pairStats) float64 {
	freq := float64(st.count)
	if freq > 5 {
		freq = 5
	}
	freqScore := freq / 5
	proxScore := 1.0 / (1.0 + float64(st.minDist)/10.0)
	conf := 0.25 + 0.45*freqScore + 0.30*proxScore
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}
