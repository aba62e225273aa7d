package lp

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ritzau/topobench/pkg/graph"
	"github.com/ritzau/topobench/pkg/model"
)

// Eligibility decides whether link (from, to) may carry flow of commodity (src, dst)
type Eligibility interface {
	IsExcluded(src, dst, from, to int) bool
}

// CondensedBuilder writes the condensed formulation: one variable
// f_<fid>_<i>_<j> per commodity and eligible link.
type CondensedBuilder struct {
	g           *graph.Graph
	eval        Eligibility
	kUpperBound int
}

// NewCondensedBuilder creates a builder. kUpperBound caps the fairness
// multiplier through the source out-flow constraints.
func NewCondensedBuilder(g *graph.Graph, eval Eligibility, kUpperBound int) (*CondensedBuilder, error) {
	if kUpperBound < 1 {
		return nil, fmt.Errorf("condensed program: K upper bound must be positive, got %d: %w", kUpperBound, model.ErrConfiguration)
	}
	return &CondensedBuilder{g: g, eval: eval, kUpperBound: kUpperBound}, nil
}

func flowVar(fid, i, j int) string {
	return "f_" + strconv.Itoa(fid) + "_" + strconv.Itoa(i) + "_" + strconv.Itoa(j)
}

// Write emits the program for the given demand
func (b *CondensedBuilder) Write(w io.Writer, d *Demand) error {
	g := b.g
	n := g.NumNodes()
	flows := d.Flows()
	out := newLPWriter(w)

	excluded := func(fl Flow, from, to int) bool {
		return b.eval.IsExcluded(fl.Src, fl.Dst, from, to)
	}

	out.print("Maximize \n")
	out.print("obj: K\n")
	out.print("\nSUBJECT TO\n")

	// Type 0: every commodity leaves its source at rate >= demand * K
	out.print("\\Type 0: Outgoing flow >= K\n")
	for _, fl := range flows {
		var sb strings.Builder
		fmt.Fprintf(&sb, "c0_%d: ", fl.ID)
		wrote := false
		for _, l := range g.Links(fl.Src) {
			if !excluded(fl, fl.Src, l.To) {
				sb.WriteString("-" + flowVar(fl.ID, fl.Src, l.To) + " ")
				wrote = true
			}
		}
		if wrote {
			fmt.Fprintf(&sb, " + %d K <= 0\n", fl.Demand)
			out.print(sb.String())
		}
	}

	// Type 1: summed flow on a link stays within its capacity
	out.print("\n\\Type 1: Load on link <= link capacity\n")
	for from := 0; from < n; from++ {
		for _, l := range g.Links(from) {
			var terms []string
			for _, fl := range flows {
				if !excluded(fl, from, l.To) {
					terms = append(terms, flowVar(fl.ID, from, l.To))
				}
			}
			if len(terms) > 0 {
				out.printf("c1_%d_%d: %s <= %d\n", from, l.To, strings.Join(terms, " + "), l.Capacity)
			}
		}
	}

	// Type 2: conservation everywhere except the destination, which is the sink
	out.print("\n\\Type 2: Flow conservation at non-source, non-destination\n")
	for _, fl := range flows {
		for u := 0; u < n; u++ {
			switch {
			case u == fl.Src:
				b.writeSourceConservation(out, fl, excluded)
			case u != fl.Dst:
				b.writeTransitConservation(out, fl, u, excluded)
			}
		}
	}

	out.print("End\n")
	return out.flush("condensed program")
}

func (b *CondensedBuilder) writeSourceConservation(out *lpWriter, fl Flow, excluded func(Flow, int, int) bool) {
	u := fl.Src
	var outTerms, inTerms []string
	for _, l := range b.g.Links(u) {
		v := l.To
		if !excluded(fl, u, v) {
			outTerms = append(outTerms, flowVar(fl.ID, u, v))
		}
		if !excluded(fl, v, u) {
			inTerms = append(inTerms, flowVar(fl.ID, v, u))
		}
	}
	if len(outTerms) > 0 {
		out.printf("c2_%d_%d_1: %s <= %d\n", fl.ID, u, strings.Join(outTerms, " + "), fl.Demand*b.kUpperBound)
	}
	if len(inTerms) > 0 {
		out.printf("c2_%d_%d_2: %s = 0\n", fl.ID, u, strings.Join(inTerms, " + "))
	}
}

func (b *CondensedBuilder) writeTransitConservation(out *lpWriter, fl Flow, u int, excluded func(Flow, int, int) bool) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "c2_%d_%d_3: ", fl.ID, u)
	wrote := false
	first := true
	for _, l := range b.g.Links(u) {
		if !excluded(fl, u, l.To) {
			if !first {
				sb.WriteString(" + ")
			}
			sb.WriteString(flowVar(fl.ID, u, l.To))
			first = false
			wrote = true
		}
	}
	for _, l := range b.g.Links(u) {
		if !excluded(fl, l.To, u) {
			sb.WriteString(" - " + flowVar(fl.ID, l.To, u))
			wrote = true
		}
	}
	if wrote {
		sb.WriteString(" = 0\n")
		out.print(sb.String())
	}
}

// WriteFlowIDMap writes "fid src dst" lines
func WriteFlowIDMap(w io.Writer, d *Demand) error {
	out := newLPWriter(w)
	for _, fl := range d.Flows() {
		out.printf("%d %d %d\n", fl.ID, fl.Src, fl.Dst)
	}
	return out.flush("flow id map")
}

// WriteLinkCapacities writes "u-v (cap) outdeg(u) outdeg(v)" lines
func WriteLinkCapacities(w io.Writer, g *graph.Graph) error {
	out := newLPWriter(w)
	for u := 0; u < g.NumNodes(); u++ {
		for _, l := range g.Links(u) {
			out.printf("%d-%d (%d) %d %d\n", u, l.To, l.Capacity, g.OutDegree(u), g.OutDegree(l.To))
		}
	}
	return out.flush("link capacities")
}
