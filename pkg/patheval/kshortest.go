package patheval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/schollz/progressbar/v3"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/ritzau/topobench/pkg/graph"
	"github.com/ritzau/topobench/pkg/logging"
	"github.com/ritzau/topobench/pkg/model"
)

// KShortestOptions configures the k-shortest-paths evaluator
type KShortestOptions struct {
	K int // -1 is unbounded

	// Prepare recomputes the cache for K before loading it. Without it the
	// cache written by an earlier preparation run is reused.
	Prepare   bool
	CachePath string

	Workers  int       // size of the preparation worker pool
	Progress io.Writer // progress bar output, nil for none
}

// cacheEntry is one line of the cache: link (from, to) first appears on the
// rank-th shortest path from src to dst
type cacheEntry struct {
	src, dst, from, to, rank int
}

// NewKShortest admits, for each (src, dst), the links on the K shortest
// simple paths. Path edges come from the cache file; see KShortestOptions.
func NewKShortest(ctx context.Context, g *graph.Graph, opts KShortestOptions) (*Evaluator, error) {
	if err := requireDistances("k-shortest evaluator", g); err != nil {
		return nil, err
	}
	k := opts.K
	if k == -1 {
		k = unbounded
	}
	if k <= 0 {
		return nil, fmt.Errorf("k-shortest evaluator: k must be >= 1, got %d: %w", opts.K, model.ErrConfiguration)
	}

	log := logging.New("patheval")
	if opts.Prepare {
		log.Info("pre-calculating k shortest paths", "k", k, "cache", opts.CachePath)
		if err := PrepareKShortestCache(ctx, g, k, opts.CachePath, opts.Workers, opts.Progress); err != nil {
			return nil, err
		}
	}

	n := g.NumNodes()
	e := &Evaluator{kind: KindKShortest, g: g, n: n, valid: make([]map[int]struct{}, n*n)}
	loaded, err := loadKShortestCache(opts.CachePath, n, func(c cacheEntry) {
		if c.rank <= k {
			e.admit(c.src, c.dst, c.from, c.to)
		}
	})
	if err != nil {
		return nil, err
	}
	log.Info("loaded k shortest path edges", "k", k, "entries", loaded)
	return e, nil
}

// PrepareKShortestCache runs Yen's algorithm for every ordered pair and
// writes "src dst from to rank" lines, one per link at its first rank.
// Sources are processed on a worker pool; the file is written in source order.
func PrepareKShortestCache(ctx context.Context, g *graph.Graph, k int, cachePath string, workers int, progress io.Writer) error {
	n := g.NumNodes()
	if workers < 1 {
		workers = 1
	}
	if progress == nil {
		progress = io.Discard
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return fmt.Errorf("k-shortest cache: create worker pool: %w", err)
	}
	defer pool.Release()

	bar := progressbar.NewOptions(n,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("k shortest paths"),
		progressbar.OptionShowCount(),
	)

	view := g.PathView()
	results := make([][]cacheEntry, n)
	var wg sync.WaitGroup
	for src := 0; src < n; src++ {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			results[src] = kShortestEdges(view, n, src, k)
			_ = bar.Add(1)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return fmt.Errorf("k-shortest cache: submit source %d: %w", src, err)
		}
	}
	wg.Wait()
	_ = bar.Finish()
	if err := ctx.Err(); err != nil {
		return err
	}

	file, err := os.Create(cachePath)
	if err != nil {
		return fmt.Errorf("k-shortest cache: %v: %w", err, model.ErrIO)
	}
	defer func() { _ = file.Close() }()

	w := bufio.NewWriter(file)
	for _, entries := range results {
		for _, c := range entries {
			fmt.Fprintf(w, "%d %d %d %d %d\n", c.src, c.dst, c.from, c.to, c.rank)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("k-shortest cache: write %s: %v: %w", cachePath, err, model.ErrIO)
	}
	return file.Close()
}

func kShortestEdges(view graph.PathView, n, src, k int) []cacheEntry {
	var entries []cacheEntry
	for dst := 0; dst < n; dst++ {
		if dst == src {
			continue
		}
		paths := path.YenKShortestPaths(view, k, math.Inf(1), simple.Node(int64(src)), simple.Node(int64(dst)))

		seen := make(map[[2]int]struct{})
		for rank, p := range paths {
			for z := 1; z < len(p); z++ {
				edge := [2]int{int(p[z-1].ID()), int(p[z].ID())}
				if _, ok := seen[edge]; ok {
					continue
				}
				seen[edge] = struct{}{}
				entries = append(entries, cacheEntry{src: src, dst: dst, from: edge[0], to: edge[1], rank: rank + 1})
			}
		}
	}
	return entries
}

func loadKShortestCache(cachePath string, n int, fn func(cacheEntry)) (int, error) {
	file, err := os.Open(cachePath)
	if err != nil {
		return 0, fmt.Errorf("k-shortest cache: %v: %w", err, model.ErrIO)
	}
	defer func() { _ = file.Close() }()

	count := 0
	lineNo := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 5 {
			return count, fmt.Errorf("k-shortest cache %s:%d: want 5 fields, got %q: %w", cachePath, lineNo, scanner.Text(), model.ErrStructural)
		}
		var v [5]int
		for i, f := range fields {
			x, err := strconv.Atoi(f)
			if err != nil {
				return count, fmt.Errorf("k-shortest cache %s:%d: %v: %w", cachePath, lineNo, err, model.ErrStructural)
			}
			v[i] = x
		}
		for _, node := range v[:4] {
			if node < 0 || node >= n {
				return count, fmt.Errorf("k-shortest cache %s:%d: node %d outside graph of %d nodes: %w", cachePath, lineNo, node, n, model.ErrStructural)
			}
		}
		fn(cacheEntry{src: v[0], dst: v[1], from: v[2], to: v[3], rank: v[4]})
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("k-shortest cache %s: %v: %w", cachePath, err, model.ErrIO)
	}
	return count, nil
}
