package centrality

// pagerank runs weighted power iteration with the standard 0.85 damping.
// Dangling mass is redistributed uniformly so scores still sum to one.
func pagerank(g *cograph, iterations int, damping float64) []float64 {
	n := g.size()
	if n == 0 {
		return nil
	}
	rank := make([]float64, n)
	next := make([]float64, n)
	for i := range rank {
		rank[i] = 1.0 / float64(n)
	}

	outWeight := make([]float64, n)
	for i, nbrs := range g.adj {
		for _, e := range nbrs {
			outWeight[i] += e.weight
		}
	}

	for it := 0; it < iterations; it++ {
		base := (1 - damping) / float64(n)
		dangling := 0.0
		for i := range next {
			next[i] = base
		}
		for i, nbrs := range g.adj {
			if outWeight[i] == 0 {
				dangling += rank[i]
				continue
			}
			share := damping * rank[i] / outWeight[i]
			for _, e := range nbrs {
				next[e.to] += share * e.weight
			}
		}
		if dangling > 0 {
			spread := damping * dangling / float64(n)
			for i := range next {
				next[i] += spread
			}
		}
		rank, next = next, rank
	}
	return rank
}

// degreeCentrality is weighted degree normalized by the maximum possible
// unweighted degree.
func degreeCentrality(g *cograph) []float64 {
	n := g.size()
	if n == 0 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		return out
	}
	for i, nbrs := range g.adj {
		total := 0.0
		for _, e := range nbrs {
			total += e.weight
		}
		out[i] = total / float64(n-1)
	}
	return out
}

// betweenness implements Brandes' algorithm on the unweighted skeleton of
// the graph. Co-occurrence graphs here stay small (hundreds of nodes), so
// the O(V*E) cost is acceptable per run.
func betweenness(g *cograph) []float64 {
	n := g.size()
	out := make([]float64, n)
	if n < 3 {
		return out
	}

	for s := 0; s < n; s++ {
		// BFS from s, accumulating shortest-path counts.
		stack := make([]int, 0, n)
		preds := make([][]int, n)
		sigma := make([]float64, n)
		dist := make([]int, n)
		for i := range dist {
			dist[i] = -1
		}
		sigma[s] = 1
		dist[s] = 0
		queue := []int{s}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, e := range g.adj[v] {
				w := e.to
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		delta := make([]float64, n)
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range preds[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				out[w] += delta[w]
			}
		}
	}

	// Undirected graphs count each pair twice; rescale to [0, 1].
	scale := float64((n - 1) * (n - 2))
	if scale > 0 {
		for i := range out {
			out[i] /= scale
		}
	}
	return out
}

// normalizeMax rescales a metric so its maximum is 1. Uniform or empty
// vectors come back unchanged.
func normalizeMax(values []float64) []float64 {
	max := 0.0
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	if max == 0 {
		return values
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v / max
	}
	return out
}
