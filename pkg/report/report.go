// Package report writes the human-readable artifacts of a run.
package report

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/ritzau/topobench/pkg/graph"
	"github.com/ritzau/topobench/pkg/logging"
	"github.com/ritzau/topobench/pkg/model"
	"github.com/ritzau/topobench/pkg/staging"
)

// File names inside the final staging directory
const (
	TopologyFile     = "topology.txt"
	PathLengthsFile  = "node_path_lengths.txt"
	TrafficPairsFile = "traffic_pairs.txt"
	RunInfoFile      = "run.info"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteTopology writes one "i j" line per directed link, without a
// trailing newline
func WriteTopology(w io.Writer, g *graph.Graph) error {
	bw := bufio.NewWriter(w)
	first := true
	for i := 0; i < g.NumNodes(); i++ {
		for _, l := range g.Links(i) {
			if !first {
				bw.WriteString("\n")
			}
			first = false
			fmt.Fprintf(bw, "%d %d", i, l.To)
		}
	}
	return bw.Flush()
}

// WritePathLengths writes path length statistics, the regular graph bounds
// taken from node 0's degree and weight, and the full distance matrix.
// Shortest paths are computed first if they are stale.
func WritePathLengths(w io.Writer, g *graph.Graph) error {
	if !g.ShortestPathsValid() {
		g.ComputeShortestPaths()
	}
	n := g.NumNodes()

	sum := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sum += float64(g.Distance(i, j))
		}
	}

	bw := bufio.NewWriter(w)
	bw.WriteString("GENERAL STATISTICS:")
	fmt.Fprintf(bw, "\nTotal node pairs: %d", n*n)
	if n > 0 {
		fmt.Fprintf(bw, "\nAverage path length for node pairs: %s", formatFloat(sum/float64(n*n)))
	}

	if n > 0 {
		d := float64(g.OutDegree(0))
		fmt.Fprintf(bw, "\n\nUNDER ASSUMPTION OF REGULAR GRAPH with n=%d, d=%d:", n, g.OutDegree(0))
		fmt.Fprintf(bw, "\nMinimum bound on average path length for node pairs: %s", boundString(AvgPathLengthMinBound(n, d)))
		fmt.Fprintf(bw, "\nMaximum A2A total throughput per node: %s", boundString(MaxThroughputPerNode(n, d)))
		fmt.Fprintf(bw, "\nMaximum A2A total throughput per server: %s", boundString(MaxThroughputPerServer(n, d, g.NodeWeight(0))))
	}

	bw.WriteString("\n\nPATH LENGTH FOR NODE PAIRS:\n")
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			fmt.Fprintf(bw, "%d %d %d\n", i, j, g.Distance(i, j))
		}
	}
	return bw.Flush()
}

func boundString(v float64, err error) string {
	if err != nil {
		return "n/a"
	}
	return formatFloat(v)
}

// WriteTrafficPairs writes one "from to" line per pair
func WriteTrafficPairs(w io.Writer, pairs []model.TrafficPair) error {
	bw := bufio.NewWriter(w)
	for _, p := range pairs {
		fmt.Fprintf(bw, "%s\n", p)
	}
	return bw.Flush()
}

// WriteAll writes every report into dir. Failures are logged and skipped.
func WriteAll(dir string, g *graph.Graph, pairs []model.TrafficPair, info RunInfo) {
	log := logging.New("report")
	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{TrafficPairsFile, func(w io.Writer) error { return WriteTrafficPairs(w, pairs) }},
		{TopologyFile, func(w io.Writer) error { return WriteTopology(w, g) }},
		{PathLengthsFile, func(w io.Writer) error { return WritePathLengths(w, g) }},
		{RunInfoFile, func(w io.Writer) error { return WriteRunInfo(w, info) }},
	}
	for _, wr := range writers {
		path := filepath.Join(dir, wr.name)
		if err := staging.WriteFile(path, wr.write); err != nil {
			log.Warn("skipping report", "file", path, "error", err)
			continue
		}
		log.Debug("wrote report", "file", path)
	}
}
