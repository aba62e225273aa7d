package patheval

import (
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/schollz/progressbar/v3"
	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/ritzau/topobench/pkg/graph"
	"github.com/ritzau/topobench/pkg/logging"
	"github.com/ritzau/topobench/pkg/model"
)

// NewValiant implements Valiant load balancing over k relays. For every
// (src, dst) it shuffles the other n-2 nodes with rng, takes the first k as
// relays and admits the links of the shortest paths src->relay and relay->dst.
func NewValiant(g *graph.Graph, rng *rand.Rand, k int, progress io.Writer) (*Evaluator, error) {
	if err := requireDistances("valiant evaluator", g); err != nil {
		return nil, err
	}
	n := g.NumNodes()
	if k < 1 || k > n-2 {
		return nil, fmt.Errorf("valiant evaluator: need 1 <= k <= n-2 = %d, got %d: %w", n-2, k, model.ErrConfiguration)
	}
	if progress == nil {
		progress = io.Discard
	}

	logging.New("patheval").Info("calculating shortest paths for valiant load balancing", "k", k, "nodes", n)

	view := g.PathView()
	bar := progressbar.NewOptions(n,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("valiant shortest paths"),
		progressbar.OptionShowCount(),
	)
	trees := make([]path.Shortest, n)
	for u := 0; u < n; u++ {
		trees[u] = path.DijkstraFrom(simple.Node(int64(u)), view)
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	e := &Evaluator{kind: KindValiant, g: g, n: n, valid: make([]map[int]struct{}, n*n)}
	relays := make([]int, 0, n)
	for src := 0; src < n; src++ {
		for dst := 0; dst < n; dst++ {
			if src == dst {
				continue
			}
			relays = relays[:0]
			for z := 0; z < n; z++ {
				if z != src && z != dst {
					relays = append(relays, z)
				}
			}
			rng.Shuffle(len(relays), func(i, j int) { relays[i], relays[j] = relays[j], relays[i] })

			for _, relay := range relays[:k] {
				first, _ := trees[src].To(int64(relay))
				second, _ := trees[relay].To(int64(dst))
				e.admitPath(src, dst, first)
				e.admitPath(src, dst, second)
			}
		}
	}
	return e, nil
}

// admitPath admits every link on p for (src, dst). Unreachable (nil) paths admit nothing.
func (e *Evaluator) admitPath(src, dst int, p []gonum.Node) {
	for z := 1; z < len(p); z++ {
		e.admit(src, dst, int(p[z-1].ID()), int(p[z].ID()))
	}
}
