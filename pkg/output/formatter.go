package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
)

// RunSummary describes a finished PRODUCE run
type RunSummary struct {
	RunID string
	Seed  uint64

	Graph       string
	Switches    int
	Links       int   // bidirectional
	Servers     int   // total node weight
	Components  []int // component sizes, largest first
	FailedLinks int

	Evaluator    string
	TrafficMode  string
	TrafficPairs int
	Flows        int

	Program     string
	ProgramPath string
	ReportDir   string
}

// PrintRunSummary prints a colored summary of a PRODUCE run
func PrintRunSummary(w io.Writer, s RunSummary) {
	// Color definitions
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	// Header
	bold.Fprintln(w, "topobench - Run Summary")
	bold.Fprintln(w, "=======================")
	fmt.Fprintf(w, "Run:       %s (seed %d)\n", s.RunID, s.Seed)
	fmt.Fprintf(w, "Graph:     %s\n", s.Graph)
	fmt.Fprintf(w, "Switches:  %d\n", s.Switches)
	fmt.Fprintf(w, "Links:     %d\n", s.Links)
	fmt.Fprintf(w, "Servers:   %d\n", s.Servers)
	if s.FailedLinks > 0 {
		yellow.Fprintf(w, "Failed:    %d link(s)\n", s.FailedLinks)
	}

	// Connectivity
	switch len(s.Components) {
	case 0:
	case 1:
		green.Fprintln(w, "Connected: yes")
	default:
		red.Fprintf(w, "Connected: no, %d components (sizes %s)\n", len(s.Components), joinInts(s.Components))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Evaluator: %s\n", s.Evaluator)
	fmt.Fprintf(w, "Traffic:   %s, %d pair(s), %d flow(s)\n", s.TrafficMode, s.TrafficPairs, s.Flows)
	if s.TrafficPairs == 0 {
		yellow.Fprintln(w, "No traffic was generated; the program has no commodities")
	}
	fmt.Fprintln(w)

	cyan.Fprintf(w, "Program:   %s -> %s\n", s.Program, s.ProgramPath)
	cyan.Fprintf(w, "Reports:   %s\n", s.ReportDir)
	green.Fprintln(w, "✓ Linear program written")
}

// AnalysisSummary describes a finished ANALYZE run
type AnalysisSummary struct {
	Dir          string
	Objective    float64
	HasObjective bool
	Files        int
}

// PrintAnalysisSummary prints where the analysis went and its objective
func PrintAnalysisSummary(w io.Writer, s AnalysisSummary) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	bold.Fprintln(w, "topobench - Analysis Summary")
	bold.Fprintln(w, "============================")
	fmt.Fprintf(w, "Directory: %s\n", s.Dir)
	fmt.Fprintf(w, "Files:     %d\n", s.Files)
	if s.HasObjective {
		green.Fprintf(w, "Objective: %s\n", strconv.FormatFloat(s.Objective, 'f', -1, 64))
	} else {
		yellow.Fprintln(w, "Objective: none in solution")
	}
}

func joinInts(v []int) string {
	out := ""
	for i, x := range v {
		if i > 0 {
			out += ", "
		}
		out += strconv.Itoa(x)
	}
	return out
}
