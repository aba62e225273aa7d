package lp

import (
	"io"
	"strconv"
	"strings"

	"github.com/ritzau/topobench/pkg/graph"
	"github.com/ritzau/topobench/pkg/logging"
)

// SimpleBuilder writes the unrestricted formulation: per-destination link
// variables l_<i>_<j>_<k> and per-pair aggregates f_<src>_<dst>. Every link
// and switch pair gets constraints, so it only suits small graphs.
type SimpleBuilder struct {
	g *graph.Graph
}

// NewSimpleBuilder creates a builder for g
func NewSimpleBuilder(g *graph.Graph) *SimpleBuilder {
	return &SimpleBuilder{g: g}
}

// Write emits the program for the given demand
func (b *SimpleBuilder) Write(w io.Writer, d *Demand) error {
	g := b.g
	n := g.NumNodes()
	out := newLPWriter(w)

	links := 0
	for i := 0; i < n; i++ {
		links += g.OutDegree(i)
	}
	logging.Debug("writing simple program", "links", links, "flows", len(d.Flows()))

	out.print("Maximize \n")
	out.print("obj: ")
	out.print("K")

	out.print("\n\nSUBJECT TO \n\\Type 0: Flow >= K\n")
	for _, fl := range d.Flows() {
		out.printf("c0_%d: - f_%d_%d  + %d K <= 0\n", fl.ID, fl.Src, fl.Dst, fl.Demand)
	}

	out.print("\n\\Type 1: Link capacity constraint\n")
	for i := 0; i < n; i++ {
		for _, l := range g.Links(i) {
			var sb strings.Builder
			out.printf("c2_%d_%d: ", i, l.To)
			for k := 0; k < n; k++ {
				sb.WriteString(" + l_")
				writeTriple(&sb, i, l.To, k)
			}
			out.print(sb.String())
			out.printf(" <= %d\n", l.Capacity)
		}
	}

	out.print("\n\\Type 2: Flow conservation at node\n")
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			var sb strings.Builder
			if i != k {
				if d.At(i, k) > 0 {
					sb.WriteString(" f_" + itoa(i) + "_" + itoa(k))
				}
				for _, l := range g.Links(i) {
					sb.WriteString(" + l_")
					writeTriple(&sb, l.To, i, k)
					sb.WriteString(" ")
				}
				for _, l := range g.Links(i) {
					sb.WriteString(" - l_")
					writeTriple(&sb, i, l.To, k)
					sb.WriteString(" ")
				}
			} else {
				for j := 0; j < n; j++ {
					if d.At(j, i) > 0 {
						sb.WriteString(" - f_" + itoa(j) + "_" + itoa(i))
					}
				}
				for _, l := range g.Links(i) {
					sb.WriteString(" + l_")
					writeTriple(&sb, l.To, i, i)
					sb.WriteString(" ")
				}
			}
			out.printf("c3_%d_%d: %s = 0\n", i, k, sb.String())
		}
	}

	out.print("End\n")
	return out.flush("simple program")
}

func itoa(v int) string { return strconv.Itoa(v) }

func writeTriple(sb *strings.Builder, a, b, c int) {
	sb.WriteString(itoa(a))
	sb.WriteByte('_')
	sb.WriteString(itoa(b))
	sb.WriteByte('_')
	sb.WriteString(itoa(c))
}
