package analysis

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ritzau/topobench/pkg/lp"
	"github.com/ritzau/topobench/pkg/model"
	"github.com/ritzau/topobench/pkg/report"
	"github.com/ritzau/topobench/pkg/staging"
	"github.com/ritzau/topobench/pkg/traffic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const condensedSolution = `K 0.5
f_0_0_2 0.25
f_0_2_3 0.25
f_1_0_1 1
f_1_1_3 0.75
f_1_0_2 0.5
K 9
`

const simpleSolution = `K 2
f_0_1 3
f_1_0 1.5
f_2_0 4
l_0_1_1 2
l_0_1_2 1
l_1_0_0 1.5
`

func parse(t *testing.T, text string) *Solution {
	t.Helper()
	sol, err := ParseSolution(strings.NewReader(text))
	require.NoError(t, err)
	return sol
}

func TestParseSolution(t *testing.T) {
	sol := parse(t, condensedSolution+"x_1 3\n\nK\n")
	assert.True(t, sol.HasObjective)
	assert.Equal(t, 0.5, sol.Objective)
	require.Len(t, sol.CommodityFlows, 5)
	assert.Equal(t, CommodityFlow{Flow: 1, From: 1, To: 3, Value: 0.75}, sol.CommodityFlows[3])
	assert.Empty(t, sol.PairFlows)

	simple := parse(t, simpleSolution)
	assert.Len(t, simple.PairFlows, 3)
	assert.Equal(t, LinkFlow{From: 0, To: 1, Dest: 2, Value: 1}, simple.LinkFlows[1])
}

func TestParseSolutionErrors(t *testing.T) {
	for _, text := range []string{"f_1_x 2\n", "l_1_2 3\n", "f_1 4\n", "K abc\n", "f_1_2_3 nan?\n"} {
		_, err := ParseSolution(strings.NewReader(text))
		assert.ErrorIs(t, err, model.ErrStructural, "input %q", text)
	}

	_, err := ReadSolution(filepath.Join(t.TempDir(), "vector.sol"))
	assert.ErrorIs(t, err, model.ErrIO)
}

func render(t *testing.T, fn func(*bytes.Buffer) error) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, fn(&buf))
	return buf.String()
}

func TestMCFResults(t *testing.T) {
	sol := parse(t, condensedSolution)

	all := render(t, func(b *bytes.Buffer) error { return WriteMCFFlowAll(b, sol) })
	assert.Equal(t, "0 0 2 0.25\n0 2 3 0.25\n1 0 1 1\n1 1 3 0.75\n1 0 2 0.5\n", all)

	// Node 0 sends 0.25 of flow 0 and 1.5 of flow 1
	origin := render(t, func(b *bytes.Buffer) error { return WriteMCFFlowOriginNode(b, sol) })
	assert.Equal(t, "0 1.5\n1 0.75\n2 0.25\n", origin)

	summed := render(t, func(b *bytes.Buffer) error { return WriteMCFLinkSummed(b, sol) })
	assert.Equal(t, "0 1 1\n0 2 0.75\n1 3 0.75\n2 3 0.25\n", summed)
}

func TestSimpleResults(t *testing.T) {
	sol := parse(t, simpleSolution)

	assert.Equal(t, "0 1 1 2\n0 1 2 1\n1 0 0 1.5\n",
		render(t, func(b *bytes.Buffer) error { return WriteSimpleLinkAll(b, sol) }))
	assert.Equal(t, "0 1 3\n1 0 1.5\n",
		render(t, func(b *bytes.Buffer) error { return WriteSimpleLinkSummed(b, sol) }))
	assert.Equal(t, "0 1 3\n1 0 1.5\n2 0 4\n",
		render(t, func(b *bytes.Buffer) error { return WriteSimpleFlowAll(b, sol) }))
	assert.Equal(t, "0 3\n1 1.5\n2 4\n",
		render(t, func(b *bytes.Buffer) error { return WriteSimpleFlowOriginNode(b, sol) }))

	summary := render(t, func(b *bytes.Buffer) error { return WriteSimpleFlowSummary(b, sol) })
	assert.True(t, strings.HasPrefix(summary, "SUMMARY OF 3 NODE-TO-NODE-FLOW TUPLES\n"))
	assert.Contains(t, summary, "Lowest directed flow between two nodes: 1 to 0 with flow 1.5\n")
	assert.True(t, strings.HasSuffix(summary, "Node with the lowest flow from it: 1 with total outgoing flow 1.5"))
}

func TestWriteObjective(t *testing.T) {
	assert.Equal(t, "0.5", render(t, func(b *bytes.Buffer) error { return WriteObjective(b, parse(t, condensedSolution)) }))

	var buf bytes.Buffer
	assert.ErrorIs(t, WriteObjective(&buf, parse(t, "f_0_1 2\n")), model.ErrStructural)
}

func stage(t *testing.T, solution string) staging.Dirs {
	t.Helper()
	dirs := staging.New(t.TempDir())
	require.NoError(t, dirs.Prepare())
	require.NoError(t, os.WriteFile(dirs.Solution(), []byte(solution), 0o644))
	for _, name := range []string{report.RunInfoFile, report.TopologyFile, report.TrafficPairsFile} {
		require.NoError(t, os.WriteFile(filepath.Join(dirs.Final(), name), []byte(name), 0o644))
	}
	return dirs
}

func TestAnalyzeCondensed(t *testing.T) {
	dirs := stage(t, condensedSolution)
	root := filepath.Join(t.TempDir(), "analysis")
	now := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

	res, err := Analyze(context.Background(), Options{
		Staging: dirs, Root: root, Program: lp.TypeCondensed, TrafficMode: traffic.ModeAllToAll, Now: now,
	})
	require.NoError(t, err)
	dir := res.Dir
	assert.Equal(t, filepath.Join(root, "2024-03-05--14h07m09s"), dir)
	assert.Equal(t, 8, res.Files)
	assert.Equal(t, 0.5, res.Solution.Objective)

	for _, name := range []string{MCFFlowAllFile, MCFFlowOriginFile, MCFLinkSummedFile, ObjectiveFile,
		report.RunInfoFile, report.TopologyFile, report.TrafficPairsFile, "vector.sol"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.NoFileExists(t, filepath.Join(dir, report.PathLengthsFile))
	assert.NoFileExists(t, filepath.Join(dir, SimpleFlowAllFile))

	objective, err := os.ReadFile(dirs.Objective())
	require.NoError(t, err)
	assert.Equal(t, "0.5", string(objective))
}

func TestAnalyzeSimpleWithMatchingFiles(t *testing.T) {
	dirs := stage(t, simpleSolution)
	for _, name := range traffic.MatchingFiles {
		require.NoError(t, os.WriteFile(filepath.Join(dirs.Traffic(), name), []byte("0 1 3\n"), 0o644))
	}

	res, err := Analyze(context.Background(), Options{
		Staging: dirs, Root: t.TempDir(), Program: lp.TypeSimple, TrafficMode: traffic.ModeMaxWeightPairs,
	})
	require.NoError(t, err)
	dir := res.Dir

	for _, name := range append([]string{SimpleLinkAllFile, SimpleLinkSummedFile, SimpleFlowAllFile,
		SimpleFlowOriginFile, SimpleFlowSummaryFile}, traffic.MatchingFiles...) {
		assert.FileExists(t, filepath.Join(dir, name))
	}
}

func TestAnalyzeRequiresSolution(t *testing.T) {
	dirs := staging.New(t.TempDir())
	require.NoError(t, dirs.Prepare())
	_, err := Analyze(context.Background(), Options{Staging: dirs, Root: t.TempDir(), Program: lp.TypeCondensed})
	assert.ErrorIs(t, err, model.ErrIO)
}

func TestAnalyzeRequiresObjective(t *testing.T) {
	dirs := stage(t, "f_0_1_2 1\n")
	_, err := Analyze(context.Background(), Options{Staging: dirs, Root: t.TempDir(), Program: lp.TypeCondensed})
	assert.ErrorIs(t, err, model.ErrStructural)
}
