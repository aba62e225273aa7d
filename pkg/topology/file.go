package topology

import (
	"fmt"

	"github.com/ritzau/topobench/pkg/graph"
	"github.com/ritzau/topobench/pkg/logging"
	"github.com/ritzau/topobench/pkg/model"
)

// FromFile loads an n-switch graph from an edge list. The file must list
// every undirected edge once, or every edge in both directions. Switches
// [0, partSwitches) get one server each.
func FromFile(n, partSwitches int, path string) (*graph.Graph, error) {
	if partSwitches < 0 || partSwitches > n {
		return nil, fmt.Errorf("file graph: participating switches %d outside [0, %d]: %w", partSwitches, n, model.ErrConfiguration)
	}

	edges, err := ReadEdgeList(path)
	if err != nil {
		return nil, fmt.Errorf("file graph: %w", err)
	}

	g, err := graph.New("FileGraph", n)
	if err != nil {
		return nil, err
	}

	directed := make(map[model.Edge]int, len(edges))
	for _, e := range edges {
		if e.From < 0 || e.To < 0 || e.From >= n || e.To >= n {
			return nil, fmt.Errorf("file graph %s: link %d - %d out of bounds (n=%d): %w", path, e.From, e.To, n, model.ErrStructural)
		}
		if e.From == e.To {
			return nil, fmt.Errorf("file graph %s: self-loop at %d: %w", path, e.From, model.ErrStructural)
		}
		directed[e]++
	}
	if err := checkDuplication(directed); err != nil {
		return nil, fmt.Errorf("file graph %s: %w", path, err)
	}

	added := 0
	for _, e := range edges {
		if g.IsBidirectionalNeighbor(e.From, e.To) {
			continue
		}
		if err := g.AddBidirectional(e.From, e.To); err != nil {
			return nil, fmt.Errorf("file graph %s: %w", path, err)
		}
		added++
	}

	for i := 0; i < partSwitches; i++ {
		if err := g.SetNodeWeight(i, 1); err != nil {
			return nil, err
		}
	}

	logging.New("topology").Info("loaded graph from file", "file", path, "switches", n,
		"edges", added, "participating", partSwitches)
	return g, nil
}

// checkDuplication accepts an edge list that names every undirected edge
// exactly once, or every edge exactly once in each direction
func checkDuplication(directed map[model.Edge]int) error {
	once, both := true, true
	for e, count := range directed {
		reverse := directed[model.Edge{From: e.To, To: e.From}]
		if count != 1 || reverse != 0 {
			once = false
		}
		if count != 1 || reverse != 1 {
			both = false
		}
	}
	if !once && !both {
		return fmt.Errorf("edges must be listed once or once in each direction: %w", model.ErrStructural)
	}
	return nil
}
