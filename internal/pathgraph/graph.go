package pathgraph

import "sort"

// Edge is a directed transition between consecutive path tokens. Weight counts the
// occurrences of the ordered pair.
type Edge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Weight int    `json:"weight"`
}

type edgeKey struct {
	from, to string
}

// Graph is the weighted transition multigraph of one path. Edges keep the order of
// their first occurrence.
type Graph struct {
	nodes []string
	edges []Edge
	index map[edgeKey]int
}

func Build(path Path) *Graph {
	g := &Graph{index: make(map[edgeKey]int)}
	seen := make(map[string]struct{})
	for i, token := range path.Tokens {
		if _, ok := seen[token]; !ok {
			seen[token] = struct{}{}
			g.nodes = append(g.nodes, token)
		}
		if i == 0 {
			continue
		}
		key := edgeKey{from: path.Tokens[i-1], to: token}
		if idx, ok := g.index[key]; ok {
			g.edges[idx].Weight++
			continue
		}
		g.index[key] = len(g.edges)
		g.edges = append(g.edges, Edge{From: key.from, To: key.to, Weight: 1})
	}
	return g
}

// Nodes lists distinct tokens in order of first appearance.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

func (g *Graph) Weight(from, to string) int {
	idx, ok := g.index[edgeKey{from: from, to: to}]
	if !ok {
		return 0
	}
	return g.edges[idx].Weight
}

// HeavyEdges returns edges not touching exclude, heaviest first. Equal weights keep
// first-occurrence order.
func (g *Graph) HeavyEdges(exclude string) []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		if e.From == exclude || e.To == exclude {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Weight > out[j].Weight
	})
	return out
}
