package topology

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/ritzau/topobench/pkg/command"
	"github.com/ritzau/topobench/pkg/logging"
	"github.com/ritzau/topobench/pkg/model"
)

// LiftGenerator expands the complete graph K_(degree+1) by a random
// liftFactor-lift and returns the undirected edges of the result, each once.
type LiftGenerator interface {
	Lift(ctx context.Context, degree, liftFactor int, seed int64) ([]model.Edge, error)
}

// ScriptLift delegates the lift to an external script via a file exchange:
// the input file holds "degree\nliftFactor\nseed", the output file holds one
// "src dst" line per edge.
type ScriptLift struct {
	Exec      command.Executor
	Python    string // interpreter, e.g. "python"
	ScriptDir string // directory holding xpanderGen<version>.py
	Version   string
	WorkDir   string // directory for the exchange files
}

// Lift runs the lift script and reads its edge list
func (l *ScriptLift) Lift(ctx context.Context, degree, liftFactor int, seed int64) ([]model.Edge, error) {
	in := filepath.Join(l.WorkDir, "xpander_in.temp")
	out := filepath.Join(l.WorkDir, "xpander_out.temp")

	content := fmt.Sprintf("%d\n%d\n%d", degree, liftFactor, seed)
	if err := os.WriteFile(in, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("lift: write %s: %v: %w", in, err, model.ErrIO)
	}

	script := filepath.Join(l.ScriptDir, "xpanderGen"+l.Version+".py")
	if _, err := l.Exec.Run(ctx, "", l.Python, script, in, out); err != nil {
		return nil, fmt.Errorf("lift: %w", err)
	}

	return ReadEdgeList(out)
}

// ReadEdgeList parses whitespace-separated "a b" lines. Blank lines are skipped.
func ReadEdgeList(path string) ([]model.Edge, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read edge list: %v: %w", err, model.ErrIO)
	}
	defer func() { _ = file.Close() }()

	var edges []model.Edge
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("read edge list %s:%d: expected two node ids, got %q: %w",
				path, lineNo, scanner.Text(), model.ErrStructural)
		}
		a, errA := strconv.Atoi(fields[0])
		b, errB := strconv.Atoi(fields[1])
		if errA != nil || errB != nil {
			return nil, fmt.Errorf("read edge list %s:%d: non-integer node id in %q: %w",
				path, lineNo, scanner.Text(), model.ErrStructural)
		}
		edges = append(edges, model.Edge{From: a, To: b})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read edge list %s: %v: %w", path, err, model.ErrIO)
	}
	return edges, nil
}

// maxLiftAttempts bounds the re-draws of NativeLift while looking for a
// lift that meets the Ramanujan bound
const maxLiftAttempts = 100

// NativeLift computes the random lift in process. For each pair of meta
// nodes (a, b) it draws a permutation p of the lift factor and connects
// a*k+i with b*k+p[i]. It re-draws until the second largest absolute
// adjacency eigenvalue is at most 2*sqrt(d-1), up to maxLiftAttempts times.
type NativeLift struct{}

// Lift draws the lift from a generator seeded with seed
func (NativeLift) Lift(ctx context.Context, degree, liftFactor int, seed int64) ([]model.Edge, error) {
	if degree < 1 || liftFactor < 1 {
		return nil, fmt.Errorf("lift: degree %d and lift factor %d must be positive: %w", degree, liftFactor, model.ErrConfiguration)
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(degree)<<32|uint64(liftFactor)))
	bound := 2 * math.Sqrt(float64(degree-1))

	var edges []model.Edge
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		edges = randomLift(rng, degree, liftFactor)
		if degree <= 2 {
			return edges, nil
		}
		lambda, err := secondEigenvalue((degree+1)*liftFactor, edges)
		if err != nil {
			return nil, err
		}
		if lambda <= bound+1e-9 {
			logging.Debug("lift accepted", "attempt", attempt, "lambda2", lambda, "bound", bound)
			return edges, nil
		}
		if attempt == maxLiftAttempts {
			logging.Warn("no lift met the spectral bound, keeping last draw",
				"attempts", attempt, "lambda2", lambda, "bound", bound)
			return edges, nil
		}
	}
}

func randomLift(rng *rand.Rand, degree, k int) []model.Edge {
	edges := make([]model.Edge, 0, degree*(degree+1)/2*k)
	for meta1 := 0; meta1 <= degree; meta1++ {
		for meta2 := meta1 + 1; meta2 <= degree; meta2++ {
			perm := rng.Perm(k)
			for i := 0; i < k; i++ {
				edges = append(edges, model.Edge{From: meta1*k + i, To: meta2*k + perm[i]})
			}
		}
	}
	return edges
}

// secondEigenvalue returns the second largest absolute eigenvalue of the
// symmetric adjacency matrix of the edge list
func secondEigenvalue(n int, edges []model.Edge) (float64, error) {
	adj := mat.NewSymDense(n, nil)
	for _, e := range edges {
		adj.SetSym(e.From, e.To, 1)
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(adj, false); !ok {
		return 0, fmt.Errorf("lift: eigen decomposition did not converge: %w", model.ErrStructural)
	}
	values := eig.Values(nil)
	for i, v := range values {
		values[i] = math.Abs(v)
	}
	slices.Sort(values)
	return values[len(values)-2], nil
}
