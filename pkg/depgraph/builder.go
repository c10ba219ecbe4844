package depgraph

import (
	"github.com/snowusage/snowusage/pkg/attribution"
)

// ViewDefinition is the DDL text of a single view.
type ViewDefinition struct {
	Name string
	Text string
}

// BuildViewGraph adds an edge table -> view for every catalog table the view text
// genuinely references. Every view becomes a node even when nothing matches.
func BuildViewGraph(views []ViewDefinition, m *attribution.Matcher) *Graph {
	g := New()
	for _, v := range views {
		g.AddNode(v.Name)
		for _, table := range m.References(v.Text, v.Name) {
			g.AddEdge(table, v.Name)
		}
	}

	return g
}

// BuildEdgeGraph builds a graph from edges that were extracted from structured config
// upstream, so no text matching is involved.
func BuildEdgeGraph(edges []Edge) *Graph {
	g := New()
	for _, e := range edges {
		g.AddNode(e.From)
		g.AddNode(e.To)
		g.AddEdge(e.From, e.To)
	}

	return g
}
