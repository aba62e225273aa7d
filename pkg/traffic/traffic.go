// Package traffic generates server-level traffic pairs over a graph.
package traffic

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/ritzau/topobench/pkg/graph"
	"github.com/ritzau/topobench/pkg/logging"
	"github.com/ritzau/topobench/pkg/model"
)

// Mode selects a traffic pattern
type Mode string

const (
	ModeAllToAll              Mode = "ATA"
	ModeAllToAllFraction      Mode = "ATAF"
	ModeAllToAllFractionOrder Mode = "ATAFO"
	ModeAllToAllFractionPod   Mode = "ATAFPO"
	ModeAllToOne              Mode = "AT1"
	ModeStride                Mode = "STR"
	ModeRandomPermutation     Mode = "RPP"
	ModeMinWeightPairs        Mode = "MIWP"
	ModeMaxWeightPairs        Mode = "MAWP"
)

var modes = []Mode{
	ModeRandomPermutation, ModeAllToAll, ModeAllToAllFraction, ModeAllToAllFractionOrder,
	ModeAllToAllFractionPod, ModeAllToOne, ModeStride, ModeMinWeightPairs, ModeMaxWeightPairs,
}

// ParseMode maps a mode code to a Mode
func ParseMode(code string) (Mode, error) {
	for _, m := range modes {
		if string(m) == code {
			return m, nil
		}
	}
	return "", fmt.Errorf("traffic: unknown mode %q (want one of %s): %w", code, Modes(), model.ErrConfiguration)
}

// Modes lists the accepted mode codes
func Modes() string {
	codes := make([]string, len(modes))
	for i, m := range modes {
		codes[i] = string(m)
	}
	return strings.Join(codes, ", ")
}

// IsWeightMatching reports whether the mode uses the weight matcher
func (m Mode) IsWeightMatching() bool {
	return m == ModeMinWeightPairs || m == ModeMaxWeightPairs
}

// Options carries the parameters of every mode. Each mode reads only the
// fields it needs.
type Options struct {
	Mode     Mode
	Fraction float64
	Stride   int
	PerPod   int

	// Rng is required by ATAF, AT1 and RPP
	Rng *rand.Rand

	// Matcher and WorkDir are required by MIWP and MAWP
	Matcher Matcher
	WorkDir string
}

// Generate produces the traffic pairs for g
func Generate(ctx context.Context, g *graph.Graph, opts Options) ([]model.TrafficPair, error) {
	s, err := newSource(g)
	if err != nil {
		return nil, err
	}

	if opts.Mode != ModeAllToAll && opts.Mode != ModeAllToOne {
		if err := s.ensureUniform(opts.Mode); err != nil {
			return nil, err
		}
	}
	switch opts.Mode {
	case ModeAllToAllFraction, ModeAllToAllFractionOrder, ModeAllToAllFractionPod,
		ModeRandomPermutation, ModeMinWeightPairs, ModeMaxWeightPairs:
		if opts.Fraction < 0 || opts.Fraction > 1 {
			return nil, fmt.Errorf("traffic %s: fraction %v outside [0, 1]: %w", opts.Mode, opts.Fraction, model.ErrConfiguration)
		}
	}
	switch opts.Mode {
	case ModeAllToAllFraction, ModeAllToOne, ModeRandomPermutation:
		if opts.Rng == nil {
			return nil, fmt.Errorf("traffic %s: no random source: %w", opts.Mode, model.ErrConfiguration)
		}
	}

	var pairs []model.TrafficPair
	switch opts.Mode {
	case ModeAllToAll:
		pairs, err = s.allToAll()
	case ModeAllToAllFraction:
		pairs, err = s.allToAllFraction(opts.Rng, opts.Fraction)
	case ModeAllToAllFractionOrder:
		pairs, err = s.allToAllInOrder(opts.Fraction, nil)
	case ModeAllToAllFractionPod:
		if opts.PerPod < 1 {
			return nil, fmt.Errorf("traffic %s: switches per pod must be positive, got %d: %w", opts.Mode, opts.PerPod, model.ErrConfiguration)
		}
		perPod := opts.PerPod
		pairs, err = s.allToAllInOrder(opts.Fraction, func(a, b int) bool {
			return a-a%perPod == b-b%perPod
		})
	case ModeAllToOne:
		pairs, err = s.allToOne(opts.Rng)
	case ModeStride:
		pairs, err = s.stride(opts.Stride)
	case ModeRandomPermutation:
		pairs, err = s.randomPermutation(opts.Rng, opts.Fraction)
	case ModeMinWeightPairs, ModeMaxWeightPairs:
		if opts.Matcher == nil {
			return nil, fmt.Errorf("traffic %s: no matcher: %w", opts.Mode, model.ErrConfiguration)
		}
		pairs, err = s.weightPairs(ctx, opts.Matcher, opts.WorkDir, opts.Mode == ModeMaxWeightPairs, opts.Fraction)
	default:
		return nil, fmt.Errorf("traffic: unknown mode %q: %w", opts.Mode, model.ErrConfiguration)
	}
	if err != nil {
		return nil, err
	}

	logging.New("traffic").Info("generated traffic pairs", "mode", opts.Mode, "pairs", len(pairs))
	return pairs, nil
}

// source holds the weighted switches of a graph in index order
type source struct {
	g        *graph.Graph
	weighted []int
}

func newSource(g *graph.Graph) (*source, error) {
	weighted := g.NodesWithWeight()
	if len(weighted) < 2 {
		return nil, fmt.Errorf("traffic: only %d switches carry servers, need at least 2: %w", len(weighted), model.ErrConfiguration)
	}
	return &source{g: g, weighted: weighted}, nil
}

func (s *source) ensureUniform(mode Mode) error {
	w := s.g.NodeWeight(s.weighted[0])
	for _, i := range s.weighted[1:] {
		if s.g.NodeWeight(i) != w {
			return fmt.Errorf("traffic %s: needs uniform weight, switch %d has %d servers but switch %d has %d: %w",
				mode, s.weighted[0], w, i, s.g.NodeWeight(i), model.ErrConfiguration)
		}
	}
	return nil
}

func fractionSize(count int, fraction float64) int {
	return int(float64(count) * fraction)
}

func (s *source) servers(sw int) []int {
	// sw comes from NodesWithWeight, so it is always in range
	servers, _ := s.g.SwitchToServers(sw)
	return servers
}

// connectAll pairs every server of from with every server of to
func (s *source) connectAll(pairs []model.TrafficPair, from, to int) []model.TrafficPair {
	for _, a := range s.servers(from) {
		for _, b := range s.servers(to) {
			pairs = append(pairs, model.TrafficPair{From: a, To: b})
		}
	}
	return pairs
}

// connectOneToOne pairs the z-th server of from with the z-th server of to
func (s *source) connectOneToOne(pairs []model.TrafficPair, from, to int) []model.TrafficPair {
	fromServers, toServers := s.servers(from), s.servers(to)
	for z := range fromServers {
		pairs = append(pairs, model.TrafficPair{From: fromServers[z], To: toServers[z]})
	}
	return pairs
}

func (s *source) allToAll() ([]model.TrafficPair, error) {
	total := s.g.TotalWeight()
	var pairs []model.TrafficPair
	for from := 0; from < total; from++ {
		fs, err := s.g.ServerToSwitch(from)
		if err != nil {
			return nil, err
		}
		for to := 0; to < total; to++ {
			ts, err := s.g.ServerToSwitch(to)
			if err != nil {
				return nil, err
			}
			if fs != ts {
				pairs = append(pairs, model.TrafficPair{From: from, To: to})
			}
		}
	}
	return pairs, nil
}

func (s *source) allToAllFraction(rng *rand.Rand, fraction float64) ([]model.TrafficPair, error) {
	size := fractionSize(len(s.weighted), fraction)
	order := rng.Perm(len(s.weighted))

	var pairs []model.TrafficPair
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			from, to := s.weighted[order[i]], s.weighted[order[j]]
			if from == to {
				continue
			}
			pairs = s.connectAll(pairs, from, to)
		}
	}
	logging.New("traffic").Debug("random all-to-all fraction", "fraction", fraction, "weighted", len(s.weighted), "selected", size)
	return pairs, nil
}

// allToAllInOrder connects the first fraction of weighted switches all to all.
// sameGroup, when set, suppresses pairs inside one group.
func (s *source) allToAllInOrder(fraction float64, sameGroup func(a, b int) bool) ([]model.TrafficPair, error) {
	size := fractionSize(len(s.weighted), fraction)

	var pairs []model.TrafficPair
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			from, to := s.weighted[i], s.weighted[j]
			if from == to || (sameGroup != nil && sameGroup(from, to)) {
				continue
			}
			pairs = s.connectAll(pairs, from, to)
		}
	}
	return pairs, nil
}

func (s *source) allToOne(rng *rand.Rand) ([]model.TrafficPair, error) {
	total := s.g.TotalWeight()
	target := rng.IntN(total)
	ts, err := s.g.ServerToSwitch(target)
	if err != nil {
		return nil, err
	}

	var pairs []model.TrafficPair
	for from := 0; from < total; from++ {
		fs, err := s.g.ServerToSwitch(from)
		if err != nil {
			return nil, err
		}
		if fs != ts {
			pairs = append(pairs, model.TrafficPair{From: from, To: target})
		}
	}
	return pairs, nil
}

func (s *source) stride(stride int) ([]model.TrafficPair, error) {
	count := len(s.weighted)
	if stride%count == 0 {
		return nil, fmt.Errorf("traffic %s: stride %d is a multiple of the %d server-hosting switches: %w",
			ModeStride, stride, count, model.ErrConfiguration)
	}

	var pairs []model.TrafficPair
	for i := 0; i < count; i++ {
		j := ((i+stride)%count + count) % count
		pairs = s.connectOneToOne(pairs, s.weighted[i], s.weighted[j])
	}
	return pairs, nil
}

func (s *source) randomPermutation(rng *rand.Rand, fraction float64) ([]model.TrafficPair, error) {
	size := fractionSize(len(s.weighted), fraction)
	chosen := rng.Perm(len(s.weighted))[:size]

	perm, err := derangement(rng, size)
	if err != nil {
		return nil, err
	}

	var pairs []model.TrafficPair
	for i, j := range perm {
		pairs = s.connectOneToOne(pairs, s.weighted[chosen[i]], s.weighted[chosen[j]])
	}
	return pairs, nil
}

// derangement returns a random permutation of [0, n) without fixed points.
// Starting from the identity, position i is swapped with a uniformly chosen
// position j such that neither swapped value lands on its own index.
func derangement(rng *rand.Rand, n int) ([]int, error) {
	switch n {
	case 0:
		return nil, nil
	case 1:
		return nil, fmt.Errorf("traffic %s: a single switch cannot be permuted: %w", ModeRandomPermutation, model.ErrConfiguration)
	case 2:
		return []int{1, 0}, nil
	}

	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	for i := 0; i < n; i++ {
		var k int
		if p[i] == i {
			k = rng.IntN(n - 1)
		} else {
			k = rng.IntN(n - 2)
		}
		for j := 0; j < n; j++ {
			if p[i] == j || p[j] == i {
				continue
			}
			if k == 0 {
				p[i], p[j] = p[j], p[i]
				break
			}
			k--
		}
	}
	return p, nil
}
