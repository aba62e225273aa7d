package patheval

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ritzau/topobench/pkg/graph"
	"github.com/ritzau/topobench/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGraph(t *testing.T, n int, edges [][2]int) *graph.Graph {
	t.Helper()
	g, err := graph.New("test", n)
	require.NoError(t, err)
	for _, e := range edges {
		require.NoError(t, g.AddBidirectional(e[0], e[1]))
	}
	g.ComputeShortestPaths()
	return g
}

func cycle(t *testing.T, n int) *graph.Graph {
	t.Helper()
	var edges [][2]int
	for i := 0; i < n; i++ {
		edges = append(edges, [2]int{i, (i + 1) % n})
	}
	return buildGraph(t, n, edges)
}

// grid3 is a 3x3 grid, which has many equal-length shortest paths
func grid3(t *testing.T) *graph.Graph {
	t.Helper()
	var edges [][2]int
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			id := r*3 + c
			if c < 2 {
				edges = append(edges, [2]int{id, id + 1})
			}
			if r < 2 {
				edges = append(edges, [2]int{id, id + 3})
			}
		}
	}
	return buildGraph(t, 9, edges)
}

func admittedSet(e *Evaluator, g *graph.Graph, src, dst int) map[[2]int]bool {
	set := make(map[[2]int]bool)
	for u := 0; u < g.NumNodes(); u++ {
		for _, l := range g.Links(u) {
			if !e.IsExcluded(src, dst, u, l.To) {
				set[[2]int{u, l.To}] = true
			}
		}
	}
	return set
}

func TestRequiresShortestPaths(t *testing.T) {
	g, err := graph.New("raw", 4)
	require.NoError(t, err)
	require.NoError(t, g.AddBidirectional(0, 1))

	_, err = NewSlack(g, 0)
	assert.ErrorIs(t, err, model.ErrStructural)
	_, err = NewNeighbor(g)
	assert.ErrorIs(t, err, model.ErrStructural)
	_, err = NewValiant(g, rand.New(rand.NewPCG(1, 2)), 1, nil)
	assert.ErrorIs(t, err, model.ErrStructural)
}

func TestSlackZeroAdmitsOnlyShortestPathLinks(t *testing.T) {
	g := grid3(t)
	e, err := NewSlack(g, 0)
	require.NoError(t, err)

	for src := 0; src < 9; src++ {
		for dst := 0; dst < 9; dst++ {
			if src == dst {
				continue
			}
			for u := 0; u < 9; u++ {
				for _, l := range g.Links(u) {
					onShortest := g.Distance(src, u)+1+g.Distance(l.To, dst) == g.Distance(src, dst)
					assert.Equal(t, !onShortest, e.IsExcluded(src, dst, u, l.To))
				}
			}
		}
	}

	// Corner to corner: every link directed towards the target
	assert.Equal(t, 12, e.Admitted(0, 8))
}

func TestSlackMonotonic(t *testing.T) {
	g := grid3(t)
	var prev []*Evaluator
	for k := 0; k <= 4; k++ {
		e, err := NewSlack(g, k)
		require.NoError(t, err)
		prev = append(prev, e)
	}

	for k := 1; k < len(prev); k++ {
		for src := 0; src < 9; src++ {
			for dst := 0; dst < 9; dst++ {
				narrow := admittedSet(prev[k-1], g, src, dst)
				wide := admittedSet(prev[k], g, src, dst)
				for link := range narrow {
					assert.True(t, wide[link], "slack %d dropped %v for (%d,%d)", k, link, src, dst)
				}
			}
		}
	}
}

func TestSlackUnbounded(t *testing.T) {
	g := grid3(t)
	e, err := NewSlack(g, -1)
	require.NoError(t, err)
	assert.Equal(t, 24, e.Admitted(0, 8), "unbounded slack admits every link")

	_, err = NewSlack(g, -2)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestNeighbor(t *testing.T) {
	// Path 0-1-2-3 plus shortcut 0-4-3
	g := buildGraph(t, 5, [][2]int{{0, 1}, {1, 2}, {2, 3}, {0, 4}, {4, 3}})
	e, err := NewNeighbor(g)
	require.NoError(t, err)

	// Links out of the source are always admitted
	assert.False(t, e.IsExcluded(0, 3, 0, 1))
	assert.False(t, e.IsExcluded(0, 3, 0, 4))

	// Shortest from neighbor 1 to 3 runs 1-2-3, from neighbor 4 it is 4-3
	assert.False(t, e.IsExcluded(0, 3, 1, 2))
	assert.False(t, e.IsExcluded(0, 3, 2, 3))
	assert.False(t, e.IsExcluded(0, 3, 4, 3))

	// Going backwards is never on a neighbor's shortest path
	assert.True(t, e.IsExcluded(0, 3, 2, 1))
	assert.True(t, e.IsExcluded(0, 3, 3, 4))
	assert.True(t, e.IsExcluded(0, 3, 1, 0))
}

func kspOptions(t *testing.T, k int, prepare bool, cache string) KShortestOptions {
	t.Helper()
	return KShortestOptions{K: k, Prepare: prepare, CachePath: cache, Workers: 3}
}

func TestKShortestSinglePath(t *testing.T) {
	g := grid3(t)
	cache := filepath.Join(t.TempDir(), "cache.txt")

	e, err := NewKShortest(context.Background(), g, kspOptions(t, 1, true, cache))
	require.NoError(t, err)

	for src := 0; src < 9; src++ {
		for dst := 0; dst < 9; dst++ {
			if src == dst {
				continue
			}
			admitted := admittedSet(e, g, src, dst)
			require.Len(t, admitted, g.Distance(src, dst), "(%d,%d)", src, dst)

			// The admitted links chain from src to dst
			at := src
			for steps := 0; at != dst; steps++ {
				require.Less(t, steps, len(admitted))
				next := -1
				for link := range admitted {
					if link[0] == at {
						next = link[1]
					}
				}
				require.NotEqual(t, -1, next, "path from %d to %d broken at %d", src, dst, at)
				at = next
			}
		}
	}
}

func TestKShortestCacheReuse(t *testing.T) {
	g := grid3(t)
	cache := filepath.Join(t.TempDir(), "cache.txt")

	wide, err := NewKShortest(context.Background(), g, kspOptions(t, 6, true, cache))
	require.NoError(t, err)

	data, err := os.ReadFile(cache)
	require.NoError(t, err)
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		assert.Len(t, strings.Fields(line), 5, "cache line %q", line)
	}

	// Reusing the cache with a smaller k narrows the admitted set
	narrow, err := NewKShortest(context.Background(), g, kspOptions(t, 1, false, cache))
	require.NoError(t, err)

	for src := 0; src < 9; src++ {
		for dst := 0; dst < 9; dst++ {
			if src == dst {
				continue
			}
			n := admittedSet(narrow, g, src, dst)
			w := admittedSet(wide, g, src, dst)
			assert.Len(t, n, g.Distance(src, dst))
			for link := range n {
				assert.True(t, w[link])
			}
		}
	}
	assert.Greater(t, wide.Admitted(0, 8), narrow.Admitted(0, 8))
}

func TestKShortestDeterministicCache(t *testing.T) {
	g := grid3(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")

	require.NoError(t, PrepareKShortestCache(context.Background(), g, 4, a, 1, nil))
	require.NoError(t, PrepareKShortestCache(context.Background(), g, 4, b, 4, nil))

	da, err := os.ReadFile(a)
	require.NoError(t, err)
	db, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, string(da), string(db), "worker count must not change the cache")
}

func TestKShortestErrors(t *testing.T) {
	g := grid3(t)
	_, err := NewKShortest(context.Background(), g, kspOptions(t, 0, false, "unused"))
	assert.ErrorIs(t, err, model.ErrConfiguration)

	_, err = NewKShortest(context.Background(), g, kspOptions(t, 2, false, filepath.Join(t.TempDir(), "missing")))
	assert.ErrorIs(t, err, model.ErrIO)

	bad := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("0 1 0 99 1\n"), 0o644))
	_, err = NewKShortest(context.Background(), g, kspOptions(t, 2, false, bad))
	assert.ErrorIs(t, err, model.ErrStructural)
}

// cyclePath walks the unique shortest path between a and b on an odd cycle
func cyclePath(a, b, n int) [][2]int {
	forward := (b - a + n) % n
	step := 1
	if forward > n/2 {
		step = n - 1
	}
	var links [][2]int
	for at := a; at != b; {
		next := (at + step) % n
		links = append(links, [2]int{at, next})
		at = next
	}
	return links
}

func TestValiantAllRelaysMatchesBruteForce(t *testing.T) {
	const n = 7
	g := cycle(t, n)
	e, err := NewValiant(g, rand.New(rand.NewPCG(3, 4)), n-2, nil)
	require.NoError(t, err)

	for src := 0; src < n; src++ {
		for dst := 0; dst < n; dst++ {
			if src == dst {
				continue
			}
			want := make(map[[2]int]bool)
			for relay := 0; relay < n; relay++ {
				if relay == src || relay == dst {
					continue
				}
				for _, l := range cyclePath(src, relay, n) {
					want[l] = true
				}
				for _, l := range cyclePath(relay, dst, n) {
					want[l] = true
				}
			}
			assert.Equal(t, want, admittedSet(e, g, src, dst), "(%d,%d)", src, dst)
		}
	}
}

func TestValiantSingleRelay(t *testing.T) {
	const n = 7
	g := cycle(t, n)
	e, err := NewValiant(g, rand.New(rand.NewPCG(9, 9)), 1, nil)
	require.NoError(t, err)

	for src := 0; src < n; src++ {
		for dst := 0; dst < n; dst++ {
			if src == dst {
				continue
			}
			admitted := admittedSet(e, g, src, dst)
			assert.NotEmpty(t, admitted)
			// Some admitted link leaves src and some enters dst
			leaves, enters := false, false
			for link := range admitted {
				leaves = leaves || link[0] == src
				enters = enters || link[1] == dst
			}
			assert.True(t, leaves && enters, "(%d,%d)", src, dst)
		}
	}
}

func TestValiantInvalidK(t *testing.T) {
	g := cycle(t, 5)
	rng := rand.New(rand.NewPCG(1, 1))
	for _, k := range []int{0, 4, -1} {
		_, err := NewValiant(g, rng, k, nil)
		assert.ErrorIs(t, err, model.ErrConfiguration, "k=%d", k)
	}
}

func TestValiantDeterministic(t *testing.T) {
	g := grid3(t)
	a, err := NewValiant(g, rand.New(rand.NewPCG(5, 6)), 2, nil)
	require.NoError(t, err)
	b, err := NewValiant(g, rand.New(rand.NewPCG(5, 6)), 2, nil)
	require.NoError(t, err)

	for src := 0; src < 9; src++ {
		for dst := 0; dst < 9; dst++ {
			assert.Equal(t, admittedSet(a, g, src, dst), admittedSet(b, g, src, dst))
		}
	}
}

func TestSelect(t *testing.T) {
	g := grid3(t)

	e, err := New(context.Background(), g, Options{Kind: KindSlack, Slack: 1})
	require.NoError(t, err)
	assert.Equal(t, KindSlack, e.Kind())

	_, err = New(context.Background(), g, Options{Kind: KindValiant, ValiantK: 1})
	assert.ErrorIs(t, err, model.ErrConfiguration, "valiant needs a random source")

	kind, err := ParseKind("NEIGH")
	require.NoError(t, err)
	assert.Equal(t, KindNeighbor, kind)
	_, err = ParseKind("nope")
	assert.ErrorIs(t, err, model.ErrConfiguration)
}
