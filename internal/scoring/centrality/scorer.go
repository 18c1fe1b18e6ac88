package centrality

import (
	"math"
	"strings"

	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/normalization"
	"github.com/tessella/tessella-backend/internal/platform/envutil"
	"github.com/tessella/tessella-backend/internal/platform/logger"
)

// Scorer assigns structural importance scores in [0, 1] to candidates using
// the document alone. No external service is involved, so this scorer never
// degrades; it is the floor the pipeline can always stand on.
type Scorer struct {
	log *logger.Logger

	windowStart  int
	windowMax    int
	sparseDegree float64

	wGraph    float64
	wTFIDF    float64
	wSalience float64

	wPageRank    float64
	wDegree      float64
	wBetweenness float64

	iterations int
	damping    float64
}

func NewScorer(baseLog *logger.Logger) *Scorer {
	return &Scorer{
		log:          baseLog.With("component", "CentralityScorer"),
		windowStart:  envutil.Int("CENTRALITY_WINDOW_TOKENS", 30),
		windowMax:    envutil.Int("CENTRALITY_WINDOW_TOKENS_MAX", 100),
		sparseDegree: envutil.Float("CENTRALITY_SPARSE_DEGREE", 1.5),
		wGraph:       envutil.Float("CENTRALITY_WEIGHT_GRAPH", 0.60),
		wTFIDF:       envutil.Float("CENTRALITY_WEIGHT_TFIDF", 0.25),
		wSalience:    envutil.Float("CENTRALITY_WEIGHT_SALIENCE", 0.15),
		wPageRank:    envutil.Float("CENTRALITY_WEIGHT_PAGERANK", 0.50),
		wDegree:      envutil.Float("CENTRALITY_WEIGHT_DEGREE", 0.30),
		wBetweenness: envutil.Float("CENTRALITY_WEIGHT_BETWEENNESS", 0.20),
		iterations:   envutil.Int("CENTRALITY_PAGERANK_ITERATIONS", 20),
		damping:      envutil.Float("CENTRALITY_PAGERANK_DAMPING", 0.85),
	}
}

// Score returns a score per normalized candidate name. The co-occurrence
// window starts narrow and widens once when the graph comes out too sparse
// to rank, which happens on short or list-heavy documents.
func (s *Scorer) Score(segments []types.Segment, candidates []types.CandidateConcept) map[string]float64 {
	if len(candidates) == 0 {
		return map[string]float64{}
	}

	window := s.windowStart
	g := buildGraph(candidates, window)
	if g.avgDegree() < s.sparseDegree && s.windowMax > window {
		window = s.windowMax
		g = buildGraph(candidates, window)
		s.log.Debug("widened co-occurrence window", "window", window, "avg_degree", g.avgDegree())
	}

	pr := normalizeMax(pagerank(g, s.iterations, s.damping))
	deg := normalizeMax(degreeCentrality(g))
	btw := normalizeMax(betweenness(g))

	tfidf := s.tfidfScores(g, segments, candidates)
	salience := s.salienceScores(g, segments, candidates)

	out := make(map[string]float64, g.size())
	for name, id := range g.index {
		graphScore := s.wPageRank*at(pr, id) + s.wDegree*at(deg, id) + s.wBetweenness*at(btw, id)
		score := s.wGraph*graphScore + s.wTFIDF*at(tfidf, id) + s.wSalience*at(salience, id)
		if score > 1 {
			score = 1
		}
		if score < 0 {
			score = 0
		}
		out[name] = score
	}
	return out
}

// tfidfScores treats each segment as a document. The smoothed idf keeps
// single-segment documents from zeroing the whole term.
func (s *Scorer) tfidfScores(g *cograph, segments []types.Segment, candidates []types.CandidateConcept) []float64 {
	totalSegments := len(segments)
	if totalSegments == 0 {
		totalSegments = 1
	}

	termFreq := make([]float64, g.size())
	docFreq := make([]map[int]bool, g.size())
	for i := range docFreq {
		docFreq[i] = map[int]bool{}
	}
	for _, cand := range candidates {
		key := normalization.Key(cand.Name)
		id, ok := g.index[key]
		if !ok {
			continue
		}
		if len(cand.Mentions) == 0 {
			termFreq[id]++
			docFreq[id][cand.SegmentIndex] = true
			continue
		}
		for _, m := range cand.Mentions {
			termFreq[id]++
			docFreq[id][m.SegmentIndex] = true
		}
	}

	out := make([]float64, g.size())
	for id := range out {
		df := len(docFreq[id])
		if df == 0 {
			continue
		}
		idf := math.Log(1 + float64(totalSegments)/float64(df))
		out[id] = termFreq[id] * idf
	}
	return normalizeMax(out)
}

// salienceScores rewards position: mentions in the opening segment, names
// echoed in a heading, and early offsets within their segment.
func (s *Scorer) salienceScores(g *cograph, segments []types.Segment, candidates []types.CandidateConcept) []float64 {
	headings := make(map[int]string, len(segments))
	for _, seg := range segments {
		if seg.Heading != "" {
			headings[seg.Index] = normalization.Key(seg.Heading)
		}
	}

	out := make([]float64, g.size())
	for _, cand := range candidates {
		key := normalization.Key(cand.Name)
		id, ok := g.index[key]
		if !ok {
			continue
		}
		mentions := cand.Mentions
		if len(mentions) == 0 {
			mentions = []types.Mention{{SegmentIndex: cand.SegmentIndex}}
		}
		var inOpening, inHeading, earlyOffset bool
		for _, m := range mentions {
			if m.SegmentIndex == 0 {
				inOpening = true
			}
			if h, ok := headings[m.SegmentIndex]; ok && strings.Contains(h, key) {
				inHeading = true
			}
			if m.TokenOffset < 10 {
				earlyOffset = true
			}
		}
		score := 0.0
		if inOpening {
			score += 0.5
		}
		if inHeading {
			score += 0.3
		}
		if earlyOffset {
			score += 0.2
		}
		out[id] = maxf(out[id], score)
	}
	return out
}

func at(values []float64, i int) float64 {
	if i < 0 || i >= len(values) {
		return 0
	}
	return values[i]
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
