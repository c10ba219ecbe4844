package depgraph

import (
	"sort"

	"github.com/samber/lo"
	"github.com/yourbasic/graph"
)

// Edge points from the entity that is depended upon to the entity that depends on it,
// e.g. table -> view, rollup source -> rollup target, manager -> report.
type Edge struct {
	From string
	To   string
}

// Graph is a directed graph with set semantics for nodes and edges. Self-loops are
// rejected, cycles are allowed.
type Graph struct {
	nodes      map[string]struct{}
	downstream map[string]map[string]struct{}
	upstream   map[string]map[string]struct{}
}

func New() *Graph {
	return &Graph{
		nodes:      make(map[string]struct{}),
		downstream: make(map[string]map[string]struct{}),
		upstream:   make(map[string]map[string]struct{}),
	}
}

func (g *Graph) AddNode(name string) {
	g.nodes[name] = struct{}{}
}

// AddEdge adds both endpoints and the edge. It returns false when the edge is a self-loop
// or already present.
func (g *Graph) AddEdge(from, to string) bool {
	if from == to {
		return false
	}
	if g.HasEdge(from, to) {
		return false
	}

	g.AddNode(from)
	g.AddNode(to)
	if g.downstream[from] == nil {
		g.downstream[from] = make(map[string]struct{})
	}
	if g.upstream[to] == nil {
		g.upstream[to] = make(map[string]struct{})
	}
	g.downstream[from][to] = struct{}{}
	g.upstream[to][from] = struct{}{}

	return true
}

func (g *Graph) HasNode(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

func (g *Graph) HasEdge(from, to string) bool {
	_, ok := g.downstream[from][to]
	return ok
}

func (g *Graph) Len() int {
	return len(g.nodes)
}

func (g *Graph) Nodes() []string {
	nodes := lo.Keys(g.nodes)
	sort.Strings(nodes)
	return nodes
}

func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0)
	for from, targets := range g.downstream {
		for to := range targets {
			edges = append(edges, Edge{From: from, To: to})
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})

	return edges
}

// Upstream returns the direct dependencies of name.
func (g *Graph) Upstream(name string) []string {
	return sortedKeys(g.upstream[name])
}

// Downstream returns the direct dependents of name.
func (g *Graph) Downstream(name string) []string {
	return sortedKeys(g.downstream[name])
}

// FullUpstream walks dependencies transitively. Cycles are visited once; a node on a
// cycle is part of its own result.
func (g *Graph) FullUpstream(name string) []string {
	return g.walk(name, g.upstream)
}

func (g *Graph) FullDownstream(name string) []string {
	return g.walk(name, g.downstream)
}

func (g *Graph) walk(start string, adjacency map[string]map[string]struct{}) []string {
	seen := make(map[string]struct{})
	queue := []string{start}
	var result []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range sortedKeys(adjacency[current]) {
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			result = append(result, next)
			queue = append(queue, next)
		}
	}

	sort.Strings(result)
	return result
}

// Degrees returns in+out degree for each name in universe; names absent from the graph get 0.
func (g *Graph) Degrees(universe []string) map[string]int {
	degrees := make(map[string]int, len(universe))
	for _, name := range universe {
		degrees[name] = len(g.upstream[name]) + len(g.downstream[name])
	}

	return degrees
}

// Cycles returns the strongly connected components with more than one node. Circular
// configuration produces these legitimately; they are reported, not rejected.
func (g *Graph) Cycles() [][]string {
	names := g.Nodes()
	ids := make(map[string]int, len(names))
	for i, n := range names {
		ids[n] = i
	}

	m := graph.New(len(names))
	for _, e := range g.Edges() {
		m.Add(ids[e.From], ids[e.To])
	}

	var cycles [][]string
	for _, component := range graph.StrongComponents(m) {
		if len(component) < 2 {
			continue
		}
		members := lo.Map(component, func(id int, _ int) string { return names[id] })
		sort.Strings(members)
		cycles = append(cycles, members)
	}

	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

// Union returns a new graph holding the node and edge union of the given graphs.
func Union(graphs ...*Graph) *Graph {
	u := New()
	for _, g := range graphs {
		if g == nil {
			continue
		}
		for n := range g.nodes {
			u.AddNode(n)
		}
		for _, e := range g.Edges() {
			u.AddEdge(e.From, e.To)
		}
	}

	return u
}

func sortedKeys(m map[string]struct{}) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
