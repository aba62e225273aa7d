// Package patheval decides, per commodity, which links may carry flow.
package patheval

import (
	"fmt"
	"strings"

	"github.com/ritzau/topobench/pkg/graph"
	"github.com/ritzau/topobench/pkg/model"
)

// Kind identifies a routing policy by its command line code
type Kind string

const (
	KindSlack     Kind = "SLACK"
	KindNeighbor  Kind = "NEIGH"
	KindKShortest Kind = "KSHRT"
	KindValiant   Kind = "VALIA"
)

// Kinds lists every supported policy code
var Kinds = []Kind{KindSlack, KindNeighbor, KindKShortest, KindValiant}

// ParseKind maps a code such as "SLACK" to a Kind
func ParseKind(code string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == code {
			return k, nil
		}
	}
	codes := make([]string, len(Kinds))
	for i, k := range Kinds {
		codes[i] = string(k)
	}
	return "", fmt.Errorf("unknown path evaluator %q (valid: %s): %w", code, strings.Join(codes, ", "), model.ErrConfiguration)
}

// unbounded is what a parameter of -1 stands for
const unbounded = 1000000

// Evaluator answers whether link (from, to) must be pruned for commodity
// (src, dst). It reads the graph's distance matrix and never mutates the graph.
type Evaluator struct {
	kind  Kind
	g     *graph.Graph
	n     int
	slack int

	// valid[src*n+dst] holds from*n+to for every admitted link
	valid []map[int]struct{}
}

func requireDistances(op string, g *graph.Graph) error {
	if !g.ShortestPathsValid() {
		return fmt.Errorf("%s: shortest paths of graph %q not computed: %w", op, g.Name(), model.ErrStructural)
	}
	return nil
}

// NewSlack admits link (u, v) for (src, dst) iff
// d(src,u) + 1 + d(v,dst) <= d(src,dst) + slack. A slack of -1 is unbounded.
func NewSlack(g *graph.Graph, slack int) (*Evaluator, error) {
	if err := requireDistances("slack evaluator", g); err != nil {
		return nil, err
	}
	if slack == -1 {
		slack = unbounded
	}
	if slack < 0 {
		return nil, fmt.Errorf("slack evaluator: slack must be >= 0 or -1, got %d: %w", slack, model.ErrConfiguration)
	}
	return &Evaluator{kind: KindSlack, g: g, n: g.NumNodes(), slack: slack}, nil
}

// NewNeighbor admits every link out of src, and any other link that lies on
// a shortest path from some out-neighbor of src to dst.
func NewNeighbor(g *graph.Graph) (*Evaluator, error) {
	if err := requireDistances("neighbor evaluator", g); err != nil {
		return nil, err
	}
	return &Evaluator{kind: KindNeighbor, g: g, n: g.NumNodes()}, nil
}

// Kind returns the policy of the evaluator
func (e *Evaluator) Kind() Kind {
	return e.kind
}

// IsExcluded reports whether link (from, to) must carry no flow for commodity (src, dst)
func (e *Evaluator) IsExcluded(src, dst, from, to int) bool {
	switch e.kind {
	case KindSlack:
		g := e.g
		return g.Distance(src, from)+1+g.Distance(to, dst) > g.Distance(src, dst)+e.slack
	case KindNeighbor:
		return e.neighborExcluded(src, dst, from, to)
	default:
		_, ok := e.valid[src*e.n+dst][from*e.n+to]
		return !ok
	}
}

func (e *Evaluator) neighborExcluded(src, dst, from, to int) bool {
	if src == from {
		return false
	}
	g := e.g
	for _, l := range g.Links(src) {
		w := l.To
		if g.Distance(w, from)+1+g.Distance(to, dst) <= g.Distance(w, dst) {
			return false
		}
	}
	return true
}

// Admitted counts the links admitted for (src, dst)
func (e *Evaluator) Admitted(src, dst int) int {
	count := 0
	for u := 0; u < e.n; u++ {
		for _, l := range e.g.Links(u) {
			if !e.IsExcluded(src, dst, u, l.To) {
				count++
			}
		}
	}
	return count
}

func (e *Evaluator) admit(src, dst, from, to int) {
	idx := src*e.n + dst
	if e.valid[idx] == nil {
		e.valid[idx] = make(map[int]struct{})
	}
	e.valid[idx][from*e.n+to] = struct{}{}
}
