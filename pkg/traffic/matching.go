package traffic

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/ritzau/topobench/pkg/command"
	"github.com/ritzau/topobench/pkg/logging"
	"github.com/ritzau/topobench/pkg/model"
	"github.com/ritzau/topobench/pkg/staging"
)

// Files written by the weight matching modes, relative to the work directory
const (
	DistanceFile         = "weighed_node_distances.txt"
	FractionDistanceFile = "weighed_node_distances_mw_fraction.txt"
	MatchingFile         = "max_weight_matching.txt"
	SortedMatchingFile   = "max_weight_matching_sorted.txt"
)

// MatchingFiles lists the weight matching artifacts worth archiving
var MatchingFiles = []string{DistanceFile, FractionDistanceFile, MatchingFile, SortedMatchingFile}

// MaxPathLength bounds any switch-to-switch distance plus the two server
// hops. Min-weight matching maximizes MaxPathLength minus the distance.
const MaxPathLength = 10000

// Matcher computes a maximum weight matching. The problem file holds
// "i j weight" lines, one per candidate pair; the matched pairs are written
// to matchingPath in the same format.
type Matcher interface {
	Match(ctx context.Context, problemPath, matchingPath string) error
}

// ScriptMatcher runs maxWeight<version>.py from ScriptDir
type ScriptMatcher struct {
	Exec      command.Executor
	Python    string
	ScriptDir string
	Version   string
}

// Match runs the matching script synchronously
func (m *ScriptMatcher) Match(ctx context.Context, problemPath, matchingPath string) error {
	script := filepath.Join(m.ScriptDir, "maxWeight"+m.Version+".py")
	if _, err := m.Exec.Run(ctx, "", m.Python, script, problemPath, matchingPath); err != nil {
		return fmt.Errorf("weight matching: %w", err)
	}
	return nil
}

// WeightedPair is one line of a matching file
type WeightedPair struct {
	From, To int
	Weight   float64
}

// weightPairs matches the weighted switches by path length, then matches
// again among the switches of the best-ranked fraction
func (s *source) weightPairs(ctx context.Context, m Matcher, dir string, maximize bool, fraction float64) ([]model.TrafficPair, error) {
	log := logging.New("traffic")
	if !s.g.ShortestPathsValid() {
		s.g.ComputeShortestPaths()
	}

	all, err := s.matchDistances(ctx, m, dir, DistanceFile, maximize, nil)
	if err != nil {
		return nil, err
	}

	count := len(s.weighted)
	size := fractionSize(count, fraction)
	inFraction := make([]bool, count)
	added := 0
	for _, p := range all {
		for _, v := range []int{p.From, p.To} {
			if added >= size {
				break
			}
			if v < 0 || v >= count {
				return nil, fmt.Errorf("weight matching: index %d outside [0, %d): %w", v, count, model.ErrStructural)
			}
			if !inFraction[v] {
				inFraction[v] = true
				added++
			}
		}
	}

	matched, err := s.matchDistances(ctx, m, dir, FractionDistanceFile, maximize, inFraction)
	if err != nil {
		return nil, err
	}

	var pairs []model.TrafficPair
	for _, p := range matched {
		if p.From < 0 || p.From >= count || p.To < 0 || p.To >= count {
			return nil, fmt.Errorf("weight matching: pair %d-%d outside [0, %d): %w", p.From, p.To, count, model.ErrStructural)
		}
		pairs = s.connectOneToOne(pairs, s.weighted[p.From], s.weighted[p.To])
	}

	expected := size - size%2
	log.Info("weight matching traffic", "maximize", maximize, "weighted", count, "fraction", size,
		"expected", expected*s.g.NodeWeight(s.weighted[0]), "pairs", len(pairs))
	return pairs, nil
}

// matchDistances writes the distance problem, runs the matcher and returns
// the positive-weight matched pairs, heaviest first
func (s *source) matchDistances(ctx context.Context, m Matcher, dir, problemFile string, maximize bool, inFraction []bool) ([]WeightedPair, error) {
	problem := filepath.Join(dir, problemFile)
	err := staging.WriteFile(problem, func(w io.Writer) error {
		return s.writeDistances(w, maximize, inFraction)
	})
	if err != nil {
		return nil, fmt.Errorf("weight matching: %w", err)
	}

	matching := filepath.Join(dir, MatchingFile)
	if err := m.Match(ctx, problem, matching); err != nil {
		return nil, err
	}

	pairs, err := ReadMatching(matching)
	if err != nil {
		return nil, err
	}
	SortMatching(pairs)

	sorted := filepath.Join(dir, SortedMatchingFile)
	err = staging.WriteFile(sorted, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		for _, p := range pairs {
			fmt.Fprintf(bw, "%d %d %s\n", p.From, p.To, strconv.FormatFloat(p.Weight, 'f', -1, 64))
		}
		return bw.Flush()
	})
	if err != nil {
		logging.Warn("could not write sorted matching", "file", sorted, "error", err)
	}

	return slices.DeleteFunc(pairs, func(p WeightedPair) bool { return p.Weight <= 0 }), nil
}

// writeDistances emits "i j weight" for every ordered pair of distinct
// weighted switches, indexed by position among the weighted switches.
// Pairs outside the fraction get weight 0.
func (s *source) writeDistances(w io.Writer, maximize bool, inFraction []bool) error {
	bw := bufio.NewWriter(w)
	for i, from := range s.weighted {
		for j, to := range s.weighted {
			if from == to {
				continue
			}
			weight := 0
			if inFraction == nil || (inFraction[i] && inFraction[j]) {
				dist := s.g.Distance(from, to) + 2
				if maximize {
					weight = dist
				} else {
					weight = MaxPathLength - dist
				}
			}
			fmt.Fprintf(bw, "%d %d %d\n", i, j, weight)
		}
	}
	return bw.Flush()
}

// ReadMatching parses "i j weight" lines
func ReadMatching(path string) ([]WeightedPair, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read matching: %v: %w", err, model.ErrIO)
	}
	defer func() { _ = file.Close() }()

	var pairs []WeightedPair
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("read matching %s:%d: expected \"i j weight\", got %q: %w", path, lineNo, scanner.Text(), model.ErrStructural)
		}
		from, errFrom := strconv.Atoi(fields[0])
		to, errTo := strconv.Atoi(fields[1])
		weight, errWeight := strconv.ParseFloat(fields[2], 64)
		if errFrom != nil || errTo != nil || errWeight != nil {
			return nil, fmt.Errorf("read matching %s:%d: malformed line %q: %w", path, lineNo, scanner.Text(), model.ErrStructural)
		}
		pairs = append(pairs, WeightedPair{From: from, To: to, Weight: weight})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read matching %s: %v: %w", path, err, model.ErrIO)
	}
	return pairs, nil
}

// SortMatching orders pairs by weight, then source, then destination, all descending
func SortMatching(pairs []WeightedPair) {
	slices.SortStableFunc(pairs, func(a, b WeightedPair) int {
		if c := cmp.Compare(b.Weight, a.Weight); c != 0 {
			return c
		}
		if c := cmp.Compare(b.From, a.From); c != 0 {
			return c
		}
		return cmp.Compare(b.To, a.To)
	})
}

var _ Matcher = (*ScriptMatcher)(nil)
