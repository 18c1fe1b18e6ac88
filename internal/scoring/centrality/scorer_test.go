package centrality

import (
	"math"
	"testing"

	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func cand(name string, seg int, offsets ...int) types.CandidateConcept {
	c := types.CandidateConcept{Name: name, SegmentIndex: seg}
	for _, off := range offsets {
		c.Mentions = append(c.Mentions, types.Mention{SegmentIndex: seg, TokenOffset: off})
	}
	return c
}

func TestHubOutranksLeaf(t *testing.T) {
	scorer := NewScorer(testLogger(t))
	segments := []types.Segment{{Index: 0}, {Index: 1}, {Index: 2}}

	// "kafka" co-occurs with every other name; "zookeeper" appears once.
	candidates := []types.CandidateConcept{
		cand("Kafka", 0, 5),
		cand("Kafka", 1, 5),
		cand("Kafka", 2, 5),
		cand("Flink", 0, 12),
		cand("Spark", 1, 12),
		cand("ZooKeeper", 2, 12),
	}
	scores := scorer.Score(segments, candidates)
	if scores["kafka"] <= scores["zookeeper"] {
		t.Fatalf("hub kafka=%v should outrank leaf zookeeper=%v", scores["kafka"], scores["zookeeper"])
	}
}

func TestScoresBounded(t *testing.T) {
	scorer := NewScorer(testLogger(t))
	segments := []types.Segment{{Index: 0, Heading: "Kafka Overview"}}
	candidates := []types.CandidateConcept{
		cand("Kafka", 0, 1, 5, 9, 14, 30),
		cand("Flink", 0, 3, 7),
	}
	for name, score := range scorer.Score(segments, candidates) {
		if score < 0 || score > 1 {
			t.Fatalf("score for %s out of range: %v", name, score)
		}
	}
}

func TestEmptyInput(t *testing.T) {
	scorer := NewScorer(testLogger(t))
	if got := scorer.Score(nil, nil); len(got) != 0 {
		t.Fatalf("empty input should yield empty scores, got %v", got)
	}
}

func TestAdaptiveWindowConnectsSparseGraph(t *testing.T) {
	// Offsets 0 and 60 are outside the narrow window but inside the wide
	// one, so the widened pass must produce an edge.
	candidates := []types.CandidateConcept{
		cand("Terraform", 0, 0),
		cand("Ansible", 0, 60),
	}
	narrow := buildGraph(candidates, 30)
	if narrow.edgeCount() != 0 {
		t.Fatalf("narrow window edges = %d, want 0", narrow.edgeCount())
	}
	wide := buildGraph(candidates, 100)
	if wide.edgeCount() != 1 {
		t.Fatalf("wide window edges = %d, want 1", wide.edgeCount())
	}

	scorer := NewScorer(testLogger(t))
	scores := scorer.Score([]types.Segment{{Index: 0}}, candidates)
	if scores["terraform"] == 0 || scores["ansible"] == 0 {
		t.Fatalf("sparse graph should widen and score both nodes: %v", scores)
	}
}

func TestPagerankMassConserved(t *testing.T) {
	g := newCograph()
	a, b, c := g.node("a"), g.node("b"), g.node("c")
	g.addEdge(a, b)
	g.addEdge(b, c)

	ranks := pagerank(g, 20, 0.85)
	sum := 0.0
	for _, r := range ranks {
		sum += r
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Fatalf("pagerank mass = %v, want 1.0", sum)
	}
	if ranks[b] <= ranks[a] || ranks[b] <= ranks[c] {
		t.Fatalf("middle node should hold the most rank: %v", ranks)
	}
}

func TestBetweennessBridge(t *testing.T) {
	// Path graph a-b-c-d: inner nodes carry all the shortest paths.
	g := newCograph()
	a, b, c, d := g.node("a"), g.node("b"), g.node("c"), g.node("d")
	g.addEdge(a, b)
	g.addEdge(b, c)
	g.addEdge(c, d)

	btw := betweenness(g)
	if btw[b] <= btw[a] || btw[c] <= btw[d] {
		t.Fatalf("bridge nodes should outrank endpoints: %v", btw)
	}
	if btw[a] != 0 || btw[d] != 0 {
		t.Fatalf("endpoints should have zero betweenness: %v", btw)
	}
}

func TestDegreeCentralityWeighted(t *testing.T) {
	g := newCograph()
	a, b, c := g.node("a"), g.node("b"), g.node("c")
	g.addEdge(a, b)
	g.addEdge(a, b) // repeated co-occurrence raises the weight
	g.addEdge(a, c)

	deg := degreeCentrality(g)
	if deg[a] <= deg[b] {
		t.Fatalf("hub should have highest degree: %v", deg)
	}
}
