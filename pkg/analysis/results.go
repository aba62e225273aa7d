package analysis

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"strconv"

	"github.com/ritzau/topobench/pkg/model"
)

// Result file names inside the analysis directory
const (
	MCFFlowAllFile        = "mcf_results_flow_all.txt"
	MCFFlowOriginFile     = "mcf_results_flow_origin_node.txt"
	MCFLinkSummedFile     = "mcf_results_link_summed.txt"
	SimpleLinkAllFile     = "simple_results_link_all.txt"
	SimpleLinkSummedFile  = "simple_results_link_summed.txt"
	SimpleFlowAllFile     = "simple_results_flow_all.txt"
	SimpleFlowOriginFile  = "simple_results_flow_origin_node.txt"
	SimpleFlowSummaryFile = "simple_results_flow_summary.txt"
	ObjectiveFile         = "objective.txt"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type link struct{ from, to int }

func compareLinks(a, b link) int {
	if c := cmp.Compare(a.from, b.from); c != 0 {
		return c
	}
	return cmp.Compare(a.to, b.to)
}

// WriteMCFFlowAll writes "fid i j flow" per condensed variable
func WriteMCFFlowAll(w io.Writer, sol *Solution) error {
	bw := bufio.NewWriter(w)
	for _, f := range sol.CommodityFlows {
		fmt.Fprintf(bw, "%d %d %d %s\n", f.Flow, f.From, f.To, formatFloat(f.Value))
	}
	return bw.Flush()
}

// WriteMCFFlowOriginNode writes, per node i, the largest total outflow of
// any single commodity at i. At a commodity's source that is its full rate.
func WriteMCFFlowOriginNode(w io.Writer, sol *Solution) error {
	type key struct{ flow, node int }
	sums := make(map[key]float64)
	for _, f := range sol.CommodityFlows {
		sums[key{f.Flow, f.From}] += f.Value
	}

	best := make(map[int]float64)
	for k, v := range sums {
		if cur, ok := best[k.node]; !ok || v > cur {
			best[k.node] = v
		}
	}

	bw := bufio.NewWriter(w)
	for _, node := range slices.Sorted(maps.Keys(best)) {
		fmt.Fprintf(bw, "%d %s\n", node, formatFloat(best[node]))
	}
	return bw.Flush()
}

// WriteMCFLinkSummed writes "i j sum" per link, ordered by link
func WriteMCFLinkSummed(w io.Writer, sol *Solution) error {
	sums := make(map[link]float64)
	for _, f := range sol.CommodityFlows {
		sums[link{f.From, f.To}] += f.Value
	}
	return writeLinkSums(w, sums)
}

func writeLinkSums(w io.Writer, sums map[link]float64) error {
	bw := bufio.NewWriter(w)
	for _, l := range slices.SortedFunc(maps.Keys(sums), compareLinks) {
		fmt.Fprintf(bw, "%d %d %s\n", l.from, l.to, formatFloat(sums[l]))
	}
	return bw.Flush()
}

// WriteSimpleLinkAll writes "i j k flow" per link variable
func WriteSimpleLinkAll(w io.Writer, sol *Solution) error {
	bw := bufio.NewWriter(w)
	for _, l := range sol.LinkFlows {
		fmt.Fprintf(bw, "%d %d %d %s\n", l.From, l.To, l.Dest, formatFloat(l.Value))
	}
	return bw.Flush()
}

// WriteSimpleLinkSummed writes "i j sum" per link over all destinations
func WriteSimpleLinkSummed(w io.Writer, sol *Solution) error {
	sums := make(map[link]float64)
	for _, l := range sol.LinkFlows {
		sums[link{l.From, l.To}] += l.Value
	}
	return writeLinkSums(w, sums)
}

// WriteSimpleFlowAll writes "src dst flow" per pair variable
func WriteSimpleFlowAll(w io.Writer, sol *Solution) error {
	bw := bufio.NewWriter(w)
	for _, f := range sol.PairFlows {
		fmt.Fprintf(bw, "%d %d %s\n", f.Src, f.Dst, formatFloat(f.Value))
	}
	return bw.Flush()
}

func originSums(sol *Solution) map[int]float64 {
	sums := make(map[int]float64)
	for _, f := range sol.PairFlows {
		sums[f.Src] += f.Value
	}
	return sums
}

// WriteSimpleFlowOriginNode writes "src sum" per source switch
func WriteSimpleFlowOriginNode(w io.Writer, sol *Solution) error {
	sums := originSums(sol)
	bw := bufio.NewWriter(w)
	for _, src := range slices.Sorted(maps.Keys(sums)) {
		fmt.Fprintf(bw, "%d %s\n", src, formatFloat(sums[src]))
	}
	return bw.Flush()
}

// WriteSimpleFlowSummary reports the weakest pair and the weakest source
func WriteSimpleFlowSummary(w io.Writer, sol *Solution) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "SUMMARY OF %d NODE-TO-NODE-FLOW TUPLES\n", len(sol.PairFlows))
	bw.WriteString("-----------------------------------------------------------\n\n")
	if len(sol.PairFlows) == 0 {
		bw.WriteString("No flows in solution")
		return bw.Flush()
	}

	lowest := sol.PairFlows[0]
	for _, f := range sol.PairFlows[1:] {
		if f.Value < lowest.Value {
			lowest = f
		}
	}

	sums := originSums(sol)
	minSrc, minSum := -1, math.Inf(1)
	for _, src := range slices.Sorted(maps.Keys(sums)) {
		if sums[src] < minSum {
			minSrc, minSum = src, sums[src]
		}
	}

	fmt.Fprintf(bw, "Lowest directed flow between two nodes: %d to %d with flow %s\n", lowest.Src, lowest.Dst, formatFloat(lowest.Value))
	fmt.Fprintf(bw, "Node with the lowest flow from it: %d with total outgoing flow %s", minSrc, formatFloat(minSum))
	return bw.Flush()
}

// WriteObjective writes the objective value alone
func WriteObjective(w io.Writer, sol *Solution) error {
	if !sol.HasObjective {
		return fmt.Errorf("solution has no objective value: %w", model.ErrStructural)
	}
	_, err := io.WriteString(w, formatFloat(sol.Objective))
	return err
}
