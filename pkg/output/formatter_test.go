package output

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func noColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestPrintRunSummary(t *testing.T) {
	noColor(t)

	var buf bytes.Buffer
	PrintRunSummary(&buf, RunSummary{
		RunID:        "abcd",
		Seed:         42,
		Graph:        "JF",
		Switches:     10,
		Links:        20,
		Servers:      30,
		Components:   []int{10},
		Evaluator:    "SLACK",
		TrafficMode:  "RPP",
		TrafficPairs: 30,
		Flows:        10,
		Program:      "MCFFC",
		ProgramPath:  "temp/lp/program.lp",
		ReportDir:    "temp/final",
	})

	out := buf.String()
	assert.Contains(t, out, "Run:       abcd (seed 42)\n")
	assert.Contains(t, out, "Connected: yes\n")
	assert.Contains(t, out, "Traffic:   RPP, 30 pair(s), 10 flow(s)\n")
	assert.Contains(t, out, "Program:   MCFFC -> temp/lp/program.lp\n")
	assert.NotContains(t, out, "Failed:")
	assert.NotContains(t, out, "No traffic")
}

func TestPrintRunSummaryDisconnected(t *testing.T) {
	noColor(t)

	var buf bytes.Buffer
	PrintRunSummary(&buf, RunSummary{Components: []int{7, 2, 1}, FailedLinks: 3})

	out := buf.String()
	assert.Contains(t, out, "Failed:    3 link(s)\n")
	assert.Contains(t, out, "Connected: no, 3 components (sizes 7, 2, 1)\n")
	assert.Contains(t, out, "No traffic was generated")
}

func TestPrintAnalysisSummary(t *testing.T) {
	noColor(t)

	var buf bytes.Buffer
	PrintAnalysisSummary(&buf, AnalysisSummary{Dir: "analysis/x", Objective: 0.5, HasObjective: true, Files: 9})
	assert.Contains(t, buf.String(), "Objective: 0.5\n")
	assert.Contains(t, buf.String(), "Files:     9\n")

	buf.Reset()
	PrintAnalysisSummary(&buf, AnalysisSummary{Dir: "analysis/x"})
	assert.Contains(t, buf.String(), "Objective: none in solution\n")
}
