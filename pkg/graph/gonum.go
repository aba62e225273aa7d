package graph

import (
	"slices"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// PathView exposes the graph to gonum's path algorithms as a directed graph
// with unit edge weights. Neighbors are iterated in adjacency order, so path
// searches break ties the same way on every run.
//
// The view reads the live adjacency lists; it is safe for concurrent use as
// long as the graph is not mutated.
type PathView struct {
	g *Graph
}

// PathView returns a read-only gonum view of g
func (g *Graph) PathView() PathView {
	return PathView{g: g}
}

var (
	_ gonum.Directed = PathView{}
	_ gonum.Weighted = PathView{}
)

func (v PathView) has(id int64) bool {
	return id >= 0 && id < int64(len(v.g.adj))
}

// Node returns the node with the given id, or nil if it does not exist
func (v PathView) Node(id int64) gonum.Node {
	if !v.has(id) {
		return nil
	}
	return simple.Node(id)
}

// Nodes returns all nodes in index order
func (v PathView) Nodes() gonum.Nodes {
	nodes := make([]gonum.Node, len(v.g.adj))
	for i := range nodes {
		nodes[i] = simple.Node(int64(i))
	}
	return iterator.NewOrderedNodes(nodes)
}

// From returns the out-neighbors of id in adjacency order
func (v PathView) From(id int64) gonum.Nodes {
	if !v.has(id) || len(v.g.adj[id]) == 0 {
		return gonum.Empty
	}
	links := v.g.adj[id]
	nodes := make([]gonum.Node, len(links))
	for i, l := range links {
		nodes[i] = simple.Node(int64(l.To))
	}
	return iterator.NewOrderedNodes(nodes)
}

// To returns the in-neighbors of id in index order
func (v PathView) To(id int64) gonum.Nodes {
	if !v.has(id) {
		return gonum.Empty
	}
	var nodes []gonum.Node
	for i := range v.g.adj {
		if v.g.linkIndex(i, int(id)) != -1 {
			nodes = append(nodes, simple.Node(int64(i)))
		}
	}
	if len(nodes) == 0 {
		return gonum.Empty
	}
	return iterator.NewOrderedNodes(nodes)
}

// HasEdgeFromTo reports whether the directed link uid->vid exists
func (v PathView) HasEdgeFromTo(uid, vid int64) bool {
	return v.has(uid) && v.has(vid) && v.g.linkIndex(int(uid), int(vid)) != -1
}

// HasEdgeBetween reports whether a link exists in either direction
func (v PathView) HasEdgeBetween(xid, yid int64) bool {
	return v.HasEdgeFromTo(xid, yid) || v.HasEdgeFromTo(yid, xid)
}

// Edge returns the unit-weight edge uid->vid, or nil
func (v PathView) Edge(uid, vid int64) gonum.Edge {
	return v.WeightedEdge(uid, vid)
}

// WeightedEdge returns the unit-weight edge uid->vid, or nil
func (v PathView) WeightedEdge(uid, vid int64) gonum.WeightedEdge {
	if !v.HasEdgeFromTo(uid, vid) {
		return nil
	}
	return simple.WeightedEdge{F: simple.Node(uid), T: simple.Node(vid), W: 1}
}

// Weight returns 1 for existing links and 0 for a node to itself
func (v PathView) Weight(xid, yid int64) (float64, bool) {
	if xid == yid {
		return 0, true
	}
	if v.HasEdgeFromTo(xid, yid) {
		return 1, true
	}
	return 0, false
}

// undirectedView returns a gonum undirected snapshot of the bidirectional links
func (g *Graph) undirectedView() *simple.UndirectedGraph {
	ug := simple.NewUndirectedGraph()
	for i := range g.adj {
		ug.AddNode(simple.Node(int64(i)))
	}
	for i, links := range g.adj {
		for _, l := range links {
			if i < l.To && g.HasLink(l.To, i) {
				ug.SetEdge(ug.NewEdge(simple.Node(int64(i)), simple.Node(int64(l.To))))
			}
		}
	}
	return ug
}

// ConnectedComponents returns the sizes of the connected components formed
// by bidirectional links, largest first.
func (g *Graph) ConnectedComponents() []int {
	comps := topo.ConnectedComponents(g.undirectedView())
	sizes := make([]int, 0, len(comps))
	for _, c := range comps {
		sizes = append(sizes, len(c))
	}
	slices.Sort(sizes)
	slices.Reverse(sizes)
	return sizes
}
