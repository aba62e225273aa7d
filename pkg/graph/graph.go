package graph

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/ritzau/topobench/pkg/model"
)

// Infinity is the distance recorded between nodes that cannot reach each other
const Infinity = 999999999

// Link is one directed entry in a node's adjacency list
type Link struct {
	To       int
	Capacity int
}

// Graph is a capacitated switch graph with servers attached to switches.
//
// Parallel links to the same neighbor are merged by summing capacity, so an
// adjacency list never holds two entries with the same destination.
type Graph struct {
	name string
	adj  [][]Link

	weights     []int
	totalWeight int

	// Server mapping, rebuilt on first read after a weight change
	mappingStale   bool
	serverToSwitch []int
	firstServer    []int

	dist      [][]int
	distValid bool
}

// New creates a graph with n nodes, no links and zero weight
func New(name string, n int) (*Graph, error) {
	if n < 0 {
		return nil, fmt.Errorf("graph %q: negative node count %d: %w", name, n, model.ErrConfiguration)
	}
	g := &Graph{
		name:    name,
		adj:     make([][]Link, n),
		weights: make([]int, n),
	}
	return g, nil
}

// NewWithUniformWeight creates a graph where every node carries weight servers
func NewWithUniformWeight(name string, n, weight int) (*Graph, error) {
	g, err := New(name, n)
	if err != nil {
		return nil, err
	}
	if weight < 0 {
		return nil, fmt.Errorf("graph %q: negative uniform weight %d: %w", name, weight, model.ErrConfiguration)
	}
	if weight > 0 {
		for i := 0; i < n; i++ {
			g.weights[i] = weight
		}
		g.totalWeight = n * weight
		g.mappingStale = true
	}
	return g, nil
}

// Name returns the graph's name
func (g *Graph) Name() string {
	return g.name
}

// NumNodes returns the number of switches
func (g *Graph) NumNodes() int {
	return len(g.adj)
}

func (g *Graph) checkNode(op string, i int) error {
	if i < 0 || i >= len(g.adj) {
		return fmt.Errorf("graph %q: %s: node %d out of range [0, %d): %w", g.name, op, i, len(g.adj), model.ErrStructural)
	}
	return nil
}

func (g *Graph) checkPair(op string, i, j int) error {
	if i == j {
		return fmt.Errorf("graph %q: %s: self-loop on node %d: %w", g.name, op, i, model.ErrStructural)
	}
	if err := g.checkNode(op, i); err != nil {
		return err
	}
	return g.checkNode(op, j)
}

func (g *Graph) linkIndex(i, j int) int {
	for idx, l := range g.adj[i] {
		if l.To == j {
			return idx
		}
	}
	return -1
}

// AddLink adds capacity to the directed link i->j, creating it if needed
func (g *Graph) AddLink(i, j, capacity int) error {
	if err := g.checkPair("add link", i, j); err != nil {
		return err
	}
	if capacity < 1 {
		return fmt.Errorf("graph %q: add link %d->%d: capacity %d < 1: %w", g.name, i, j, capacity, model.ErrStructural)
	}

	if idx := g.linkIndex(i, j); idx != -1 {
		g.adj[i][idx].Capacity += capacity
	} else {
		g.adj[i] = append(g.adj[i], Link{To: j, Capacity: capacity})
	}
	g.distValid = false
	return nil
}

// AddBidirectional adds one unit of capacity in both directions between i and j
func (g *Graph) AddBidirectional(i, j int) error {
	return g.AddBidirectionalCapacity(i, j, 1)
}

// AddBidirectionalCapacity adds capacity in both directions between i and j
func (g *Graph) AddBidirectionalCapacity(i, j, capacity int) error {
	if err := g.checkPair("add bidirectional", i, j); err != nil {
		return err
	}
	if err := g.AddLink(i, j, capacity); err != nil {
		return err
	}
	return g.AddLink(j, i, capacity)
}

// RemoveBidirectional deletes the links i->j and j->i entirely
func (g *Graph) RemoveBidirectional(i, j int) error {
	return g.removeBidirectional(i, j, math.MaxInt)
}

// RemoveBidirectionalCapacity takes capacity away from both directions.
// A direction whose capacity does not exceed the request is deleted.
func (g *Graph) RemoveBidirectionalCapacity(i, j, capacity int) error {
	if capacity < 1 {
		return fmt.Errorf("graph %q: remove bidirectional %d-%d: capacity %d < 1: %w", g.name, i, j, capacity, model.ErrStructural)
	}
	return g.removeBidirectional(i, j, capacity)
}

func (g *Graph) removeBidirectional(i, j, capacity int) error {
	if err := g.checkPair("remove bidirectional", i, j); err != nil {
		return err
	}
	if !g.IsBidirectionalNeighbor(i, j) {
		return fmt.Errorf("graph %q: remove bidirectional %d-%d: link does not exist: %w", g.name, i, j, model.ErrStructural)
	}
	g.decrease(i, j, capacity)
	g.decrease(j, i, capacity)
	g.distValid = false
	return nil
}

func (g *Graph) decrease(i, j, capacity int) {
	idx := g.linkIndex(i, j)
	if g.adj[i][idx].Capacity > capacity {
		g.adj[i][idx].Capacity -= capacity
		return
	}
	g.adj[i] = append(g.adj[i][:idx], g.adj[i][idx+1:]...)
}

// HasLink reports whether the directed link i->j exists
func (g *Graph) HasLink(i, j int) bool {
	if i < 0 || i >= len(g.adj) {
		return false
	}
	return g.linkIndex(i, j) != -1
}

// IsBidirectionalNeighbor reports whether both i->j and j->i exist
func (g *Graph) IsBidirectionalNeighbor(i, j int) bool {
	return g.HasLink(i, j) && g.HasLink(j, i)
}

// Links returns the adjacency list of node i. The slice must not be modified.
func (g *Graph) Links(i int) []Link {
	return g.adj[i]
}

// OutDegree returns the number of distinct out-neighbors of node i
func (g *Graph) OutDegree(i int) int {
	return len(g.adj[i])
}

// NumBidirectionalEdges returns the number of directed link entries halved
func (g *Graph) NumBidirectionalEdges() int {
	total := 0
	for _, links := range g.adj {
		total += len(links)
	}
	return total / 2
}

// Edges returns every directed link as an edge, in adjacency order
func (g *Graph) Edges() []model.Edge {
	var edges []model.Edge
	for i, links := range g.adj {
		for _, l := range links {
			edges = append(edges, model.Edge{From: i, To: l.To})
		}
	}
	return edges
}

// SetNodeWeight sets the number of servers attached to node i
func (g *Graph) SetNodeWeight(i, weight int) error {
	if err := g.checkNode("set weight", i); err != nil {
		return err
	}
	if weight < 0 {
		return fmt.Errorf("graph %q: set weight of node %d: negative weight %d: %w", g.name, i, weight, model.ErrConfiguration)
	}
	g.totalWeight += weight - g.weights[i]
	g.weights[i] = weight
	g.mappingStale = true
	return nil
}

// NodeWeight returns the number of servers attached to node i
func (g *Graph) NodeWeight(i int) int {
	return g.weights[i]
}

// TotalWeight returns the total number of servers
func (g *Graph) TotalWeight() int {
	return g.totalWeight
}

// NodesWithWeight returns the nodes that have at least one server, in index order
func (g *Graph) NodesWithWeight() []int {
	var nodes []int
	for i, w := range g.weights {
		if w > 0 {
			nodes = append(nodes, i)
		}
	}
	return nodes
}

func (g *Graph) ensureMapping() {
	if !g.mappingStale && g.serverToSwitch != nil {
		return
	}

	g.serverToSwitch = make([]int, 0, g.totalWeight)
	g.firstServer = make([]int, len(g.adj))
	for i, w := range g.weights {
		g.firstServer[i] = len(g.serverToSwitch)
		for s := 0; s < w; s++ {
			g.serverToSwitch = append(g.serverToSwitch, i)
		}
	}
	g.mappingStale = false
}

// ServerToSwitch returns the switch that server s is attached to
func (g *Graph) ServerToSwitch(s int) (int, error) {
	if s < 0 || s >= g.totalWeight {
		return 0, fmt.Errorf("graph %q: server %d out of range [0, %d): %w", g.name, s, g.totalWeight, model.ErrStructural)
	}
	g.ensureMapping()
	return g.serverToSwitch[s], nil
}

// SwitchToServers returns the servers attached to switch i.
// Servers of a switch form one contiguous block.
func (g *Graph) SwitchToServers(i int) ([]int, error) {
	if err := g.checkNode("switch to servers", i); err != nil {
		return nil, err
	}
	g.ensureMapping()
	servers := make([]int, g.weights[i])
	for k := range servers {
		servers[k] = g.firstServer[i] + k
	}
	return servers, nil
}

// ComputeShortestPaths fills the all-pairs hop distance matrix (Floyd-Warshall).
// Unreachable pairs get Infinity.
func (g *Graph) ComputeShortestPaths() {
	n := len(g.adj)
	if len(g.dist) != n {
		g.dist = make([][]int, n)
		for i := range g.dist {
			g.dist[i] = make([]int, n)
		}
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			switch {
			case i == j:
				g.dist[i][j] = 0
			case g.linkIndex(i, j) != -1:
				g.dist[i][j] = 1
			default:
				g.dist[i][j] = Infinity
			}
		}
	}

	for k := 0; k < n; k++ {
		dk := g.dist[k]
		for i := 0; i < n; i++ {
			di := g.dist[i]
			dik := di[k]
			for j := 0; j < n; j++ {
				if di[j] > dik+dk[j] {
					di[j] = dik + dk[j]
				}
			}
		}
	}
	g.distValid = true
}

// ShortestPathsValid reports whether the distance matrix reflects the current links
func (g *Graph) ShortestPathsValid() bool {
	return g.distValid
}

// Distance returns the hop distance from i to j.
// Only meaningful while ShortestPathsValid is true.
func (g *Graph) Distance(i, j int) int {
	return g.dist[i][j]
}

// FailRandomLinks removes round(fraction * edges) bidirectional links chosen
// uniformly at random. It returns the number of links removed.
//
// Each draw is over the directed entries present at that moment. A draw that
// lands on a one-way link is repeated.
func (g *Graph) FailRandomLinks(rng *rand.Rand, fraction float64) (int, error) {
	if fraction < 0 || fraction > 1 || math.IsNaN(fraction) {
		return 0, fmt.Errorf("graph %q: fail links: fraction %v outside [0, 1]: %w", g.name, fraction, model.ErrConfiguration)
	}

	target := int(math.Round(fraction * float64(g.NumBidirectionalEdges())))

	for failed := 0; failed < target; failed++ {
		space, paired := g.directedCounts()
		if paired == 0 {
			return failed, fmt.Errorf("graph %q: fail links: no bidirectional link left after %d of %d: %w",
				g.name, failed, target, model.ErrStructural)
		}
		i, j := g.directedAt(rng.IntN(space))
		for !g.IsBidirectionalNeighbor(i, j) {
			i, j = g.directedAt(rng.IntN(space))
		}
		if err := g.RemoveBidirectional(i, j); err != nil {
			return failed, fmt.Errorf("fail links: %w", err)
		}
	}
	return target, nil
}

// directedCounts returns the number of directed entries and how many of them
// have a reverse entry
func (g *Graph) directedCounts() (total, paired int) {
	for i, links := range g.adj {
		total += len(links)
		for _, l := range links {
			if g.HasLink(l.To, i) {
				paired++
			}
		}
	}
	return total, paired
}

// directedAt maps an index over all directed entries back to (i, j)
func (g *Graph) directedAt(idx int) (int, int) {
	c := 0
	for i, links := range g.adj {
		if idx < c+len(links) {
			return i, links[idx-c].To
		}
		c += len(links)
	}
	return -1, -1
}

// String returns a line-per-node dump: "i weight to (cap) to (cap) ..."
func (g *Graph) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Graph '%s':\n", g.name)
	for i, links := range g.adj {
		fmt.Fprintf(&sb, "%d %d", i, g.weights[i])
		for _, l := range links {
			fmt.Fprintf(&sb, " %d (%d)", l.To, l.Capacity)
		}
		if i != len(g.adj)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
