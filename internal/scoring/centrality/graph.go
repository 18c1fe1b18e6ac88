package centrality

import (
	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/normalization"
)

// cograph is the transient co-occurrence graph for one document run. Nodes
// are normalized candidate names mapped to dense indexes; adjacency lists
// carry co-occurrence counts as edge weights. The graph lives only for the
// duration of scoring and is never persisted.
type cograph struct {
	index map[string]int
	names []string
	adj   [][]edge
}

type edge struct {
	to     int
	weight float64
}

type placedMention struct {
	node    int
	segment int
	offset  int
}

func newCograph() *cograph {
	return &cograph{index: map[string]int{}}
}

func (g *cograph) node(name string) int {
	if id, ok := g.index[name]; ok {
		return id
	}
	id := len(g.names)
	g.index[name] = id
	g.names = append(g.names, name)
	g.adj = append(g.adj, nil)
	return id
}

func (g *cograph) addEdge(a, b int) {
	if a == b {
		return
	}
	g.bump(a, b)
	g.bump(b, a)
}

func (g *cograph) bump(from, to int) {
	for i := range g.adj[from] {
		if g.adj[from][i].to == to {
			g.adj[from][i].weight++
			return
		}
	}
	g.adj[from] = append(g.adj[from], edge{to: to, weight: 1})
}

func (g *cograph) size() int { return len(g.names) }

func (g *cograph) edgeCount() int {
	total := 0
	for _, nbrs := range g.adj {
		total += len(nbrs)
	}
	return total / 2
}

// buildGraph links mentions that fall within window tokens of each other in
// the same segment. Candidates without explicit mentions count as a single
// mention at the head of their segment.
func buildGraph(candidates []types.CandidateConcept, window int) *cograph {
	g := newCograph()
	mentions := collectMentions(g, candidates)

	bySegment := map[int][]placedMention{}
	for _, m := range mentions {
		bySegment[m.segment] = append(bySegment[m.segment], m)
	}
	for _, seg := range bySegment {
		for i := 0; i < len(seg); i++ {
			for j := i + 1; j < len(seg); j++ {
				dist := seg[i].offset - seg[j].offset
				if dist < 0 {
					dist = -dist
				}
				if dist <= window {
					g.addEdge(seg[i].node, seg[j].node)
				}
			}
		}
	}
	return g
}

func collectMentions(g *cograph, candidates []types.CandidateConcept) []placedMention {
	var out []placedMention
	for _, cand := range candidates {
		key := normalization.Key(cand.Name)
		if key == "" {
			continue
		}
		node := g.node(key)
		if len(cand.Mentions) == 0 {
			out = append(out, placedMention{node: node, segment: cand.SegmentIndex})
			continue
		}
		for _, m := range cand.Mentions {
			out = append(out, placedMention{node: node, segment: m.SegmentIndex, offset: m.TokenOffset})
		}
	}
	return out
}

// avgDegree is the sparsity signal for adaptive windowing.
func (g *cograph) avgDegree() float64 {
	if g.size() == 0 {
		return 0
	}
	return float64(2*g.edgeCount()) / float64(g.size())
}
