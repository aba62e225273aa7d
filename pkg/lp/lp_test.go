package lp

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/MakeNowJust/heredoc"
	"github.com/ritzau/topobench/pkg/graph"
	"github.com/ritzau/topobench/pkg/model"
	"github.com/ritzau/topobench/pkg/patheval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trianglePendant is the triangle 0-1-2 with switch 3 hanging off 2,
// one server per switch
func trianglePendant(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.NewWithUniformWeight("tp", 4, 1)
	require.NoError(t, err)
	for _, e := range [][2]int{{0, 1}, {1, 2}, {0, 2}, {2, 3}} {
		require.NoError(t, g.AddBidirectional(e[0], e[1]))
	}
	g.ComputeShortestPaths()
	return g
}

func pair(t *testing.T, from, to int) model.TrafficPair {
	t.Helper()
	p, err := model.NewTrafficPair(from, to)
	require.NoError(t, err)
	return p
}

type allowAll struct{}

func (allowAll) IsExcluded(_, _, _, _ int) bool { return false }

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestBuildDemand(t *testing.T) {
	g := trianglePendant(t)
	d, err := BuildDemand(g, []model.TrafficPair{pair(t, 3, 0), pair(t, 0, 3), pair(t, 0, 3), pair(t, 1, 2)})
	require.NoError(t, err)

	assert.Equal(t, 2, d.At(0, 3))
	assert.Equal(t, 1, d.At(3, 0))
	assert.Equal(t, 0, d.At(2, 1))
	assert.Equal(t, []Flow{
		{ID: 0, Src: 0, Dst: 3, Demand: 2},
		{ID: 1, Src: 1, Dst: 2, Demand: 1},
		{ID: 2, Src: 3, Dst: 0, Demand: 1},
	}, d.Flows())
}

func TestBuildDemandErrors(t *testing.T) {
	g, err := graph.New("shared", 2)
	require.NoError(t, err)
	require.NoError(t, g.SetNodeWeight(0, 2))
	require.NoError(t, g.SetNodeWeight(1, 1))
	require.NoError(t, g.AddBidirectional(0, 1))

	_, err = BuildDemand(g, []model.TrafficPair{pair(t, 0, 1)})
	assert.ErrorIs(t, err, model.ErrTrafficValidation)

	_, err = BuildDemand(g, []model.TrafficPair{pair(t, 0, 9)})
	assert.ErrorIs(t, err, model.ErrStructural)
}

func TestCondensedShortestPathOnly(t *testing.T) {
	g := trianglePendant(t)
	eval, err := patheval.NewSlack(g, 0)
	require.NoError(t, err)
	d, err := BuildDemand(g, []model.TrafficPair{pair(t, 0, 3)})
	require.NoError(t, err)

	b, err := NewCondensedBuilder(g, eval, 1000)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, b.Write(&buf, d))

	want := "Maximize \n" + heredoc.Doc(`
		obj: K

		SUBJECT TO
		\Type 0: Outgoing flow >= K
		c0_0: -f_0_0_2  + 1 K <= 0

		\Type 1: Load on link <= link capacity
		c1_0_2: f_0_0_2 <= 1
		c1_2_3: f_0_2_3 <= 1

		\Type 2: Flow conservation at non-source, non-destination
		c2_0_0_1: f_0_0_2 <= 1000
		c2_0_2_3: f_0_2_3 - f_0_0_2 = 0
		End
	`)
	assert.Equal(t, want, buf.String())
}

func TestCondensedAllLinksEligible(t *testing.T) {
	g := trianglePendant(t)
	d, err := BuildDemand(g, []model.TrafficPair{pair(t, 0, 3), pair(t, 1, 3)})
	require.NoError(t, err)

	b, err := NewCondensedBuilder(g, allowAll{}, 10)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, b.Write(&buf, d))
	out := buf.String()

	// Every directed link carries both commodities
	assert.Contains(t, out, "c1_2_3: f_0_2_3 + f_1_2_3 <= 1\n")
	assert.Contains(t, out, "c1_3_2: f_0_3_2 + f_1_3_2 <= 1\n")
	assert.Equal(t, 8, strings.Count(out, "\nc1_"))

	assert.Contains(t, out, "c0_0: -f_0_0_1 -f_0_0_2  + 1 K <= 0\n")
	assert.Contains(t, out, "c2_0_0_1: f_0_0_1 + f_0_0_2 <= 10\n")
	assert.Contains(t, out, "c2_0_0_2: f_0_1_0 + f_0_2_0 = 0\n")
	assert.Contains(t, out, "c2_1_2_3: f_1_2_1 + f_1_2_0 + f_1_2_3 - f_1_1_2 - f_1_0_2 - f_1_3_2 = 0\n")

	// No conservation row for the destination
	assert.NotContains(t, out, "c2_0_3_")
	assert.True(t, strings.HasSuffix(out, "End\n"))
}

func TestCondensedErrors(t *testing.T) {
	g := trianglePendant(t)
	_, err := NewCondensedBuilder(g, allowAll{}, 0)
	assert.ErrorIs(t, err, model.ErrConfiguration)

	b, err := NewCondensedBuilder(g, allowAll{}, 1)
	require.NoError(t, err)
	d, err := BuildDemand(g, []model.TrafficPair{pair(t, 0, 3)})
	require.NoError(t, err)
	assert.ErrorIs(t, b.Write(failingWriter{}, d), model.ErrIO)
}

func TestSimpleProgram(t *testing.T) {
	g := trianglePendant(t)
	d, err := BuildDemand(g, []model.TrafficPair{pair(t, 0, 3)})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewSimpleBuilder(g).Write(&buf, d))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Maximize \nobj: K\n\nSUBJECT TO \n\\Type 0: Flow >= K\n"))
	assert.Contains(t, out, "c0_0: - f_0_3  + 1 K <= 0\n")
	assert.Contains(t, out, "c2_0_1:  + l_0_1_0 + l_0_1_1 + l_0_1_2 + l_0_1_3 <= 1\n")
	assert.Contains(t, out, "c3_0_3:  f_0_3 + l_1_0_3  + l_2_0_3  - l_0_1_3  - l_0_2_3  = 0\n")
	assert.Contains(t, out, "c3_3_3:  - f_0_3 + l_2_3_3  = 0\n")
	assert.Contains(t, out, "c3_1_3:  + l_0_1_3  + l_2_1_3  - l_1_0_3  - l_1_2_3  = 0\n")

	assert.Equal(t, 8, strings.Count(out, "\nc2_"))
	assert.Equal(t, 16, strings.Count(out, "\nc3_"))
	assert.True(t, strings.HasSuffix(out, "End\n"))
}

func TestAuxiliaryFiles(t *testing.T) {
	g := trianglePendant(t)
	d, err := BuildDemand(g, []model.TrafficPair{pair(t, 3, 0), pair(t, 0, 3)})
	require.NoError(t, err)

	var ids bytes.Buffer
	require.NoError(t, WriteFlowIDMap(&ids, d))
	assert.Equal(t, "0 0 3\n1 3 0\n", ids.String())

	var caps bytes.Buffer
	require.NoError(t, WriteLinkCapacities(&caps, g))
	lines := strings.Split(strings.TrimSpace(caps.String()), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "0-1 (1) 2 2", lines[0])
	assert.Contains(t, lines, "2-3 (1) 3 1")
	assert.Contains(t, lines, "3-2 (1) 1 3")
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("MCFFC")
	require.NoError(t, err)
	assert.Equal(t, TypeCondensed, typ)

	typ, err = ParseType("SIMPLE")
	require.NoError(t, err)
	assert.Equal(t, TypeSimple, typ)

	_, err = ParseType("mcf")
	assert.ErrorIs(t, err, model.ErrConfiguration)
}
