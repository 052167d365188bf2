package load

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdnfake/graph"
	"pdnfake/types"
)

const sampleNetlist = `* 测试网表
.op
R1 n1_m1_0_0 n1_m1_5_0 10.0
R2 n1_m1_5_0 n1_m9_5_0 0.5
I1 n1_m1_0_0 0 0.001
V1 n1_m9_5_0 0 1.1
.end
`

func TestReadLinesFiltersElements(t *testing.T) {
	lines, err := ReadLines(strings.NewReader("title\n  r1 a b 1\n*c\n\ni1 a 0 1\nv1 b 0 1\nX1 a b 1\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"r1 a b 1", "i1 a 0 1", "v1 b 0 1"}, lines)
}

func TestParseSingleResistor(t *testing.T) {
	g, err := ParseString("R1 n1_m1_0_0 n1_m1_5_0 10.0")
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)
	require.Len(t, g.Resistors, 1)

	assert.Equal(t, types.Coords{Layer: 1, X: 0, Y: 0}, g.Nodes[0].Coords)
	assert.Equal(t, types.Coords{Layer: 1, X: 5, Y: 0}, g.Nodes[1].Coords)
	assert.Equal(t, 10.0, g.Resistors[0].Value)
	assert.InDelta(t, 0.1, g.Nodes[0].InverseResistance, 1e-15)
	assert.InDelta(t, 0.1, g.Nodes[1].InverseResistance, 1e-15)
	assert.Equal(t, graph.StateBuilt, g.State)
}

func TestParseLinksAndFlags(t *testing.T) {
	g, err := ParseString(sampleNetlist)
	require.NoError(t, err)
	require.Equal(t, graph.Counts{Nodes: 3, Resistors: 2, CurrentSources: 1, VoltageSources: 1}, g.Counts())

	for i := range g.Nodes {
		n := &g.Nodes[i]
		require.Len(t, n.Neighbors, len(n.Resistors), "节点 %s 相邻列表与电阻列表长度不一致", n.Name)
		for k, rid := range n.Resistors {
			r := g.Resistors[rid]
			other := r.Nodes[0]
			if other == i {
				other = r.Nodes[1]
			}
			assert.Equal(t, other, n.Neighbors[k])
		}
	}

	src := g.Node(0)
	assert.False(t, src.CanConnectCurrent, "已有电流源的节点不能再连接电流源")
	assert.Equal(t, []types.CurrentSourceID{0}, src.CurrentSources)

	mid := g.Node(1)
	assert.True(t, mid.CanConnectCurrent)

	vdd := g.Node(2)
	assert.True(t, vdd.IsVoltageNode)
	assert.False(t, vdd.CanConnectVoltage)
	assert.Equal(t, 1.1, vdd.Value)
	assert.Equal(t, 1.1, g.Supply)
	assert.True(t, g.Resistors[1].IsVia())
	assert.False(t, g.Resistors[0].IsVia())
}

func TestParseEligibilityNotRegranted(t *testing.T) {
	g, err := ParseString("I1 n1_m1_0_0 0 0.1\nR1 n1_m1_0_0 n1_m1_1_0 1\n")
	require.NoError(t, err)
	assert.False(t, g.Node(0).CanConnectCurrent)
	assert.True(t, g.Node(1).CanConnectCurrent)
}

func TestParseFormatError(t *testing.T) {
	_, err := ParseString("R1 n1_m1_0_0 n1_m1_5_0\nR2 a b 1\n")
	require.Error(t, err)
	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 1, fe.Line)
	assert.Equal(t, "R1 n1_m1_0_0 n1_m1_5_0", fe.Text)
	assert.Contains(t, err.Error(), "R1 n1_m1_0_0 n1_m1_5_0")

	_, err = ParseString("R1 a b ten\n")
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "R1 a b ten", fe.Text)
}

func TestParseNodeName(t *testing.T) {
	cases := map[string]types.Coords{
		"0":                   {},
		"n1_m1_0_0":           {Layer: 1},
		"n1_m4_12_3400":       {Layer: 4, X: 12, Y: 3400},
		"n12_m9_1000_2000":    {Layer: 9, X: 1000, Y: 2000},
		"n1_m2":               {Layer: 2},
		"node":                {},
		"n1_m1_5_6_7":         {Layer: 1, X: 5, Y: 6},
		"n1_m1_99999999999_1": {Layer: 1, X: 4294967295, Y: 1},
	}
	for name, want := range cases {
		assert.Equal(t, want, ParseNodeName(name), name)
	}
}

func TestParseValue(t *testing.T) {
	cases := map[string]float64{
		"10.0":        10,
		"1e-3":        1e-3,
		"2k":          2000,
		"3m":          3e-3,
		"4u":          4e-6,
		"1meg":        1e6,
		"1MEG":        1e6,
		"5n":          5e-9,
		"-0.25":       -0.25,
		"1.5p":        1.5e-12,
		"0.000000001": 1e-9,
		"3M":          3e-3,
		"10mA":        1e-2,
		"1.2V":        1.2,
		"2kOhm":       2000,
		"1Megohm":     1e6,
		"2mil":        50.8e-6,
		"1e3k":        1e6,
		".5u":         5e-7,
	}
	for s, want := range cases {
		v, err := ParseValue(s)
		require.NoError(t, err, s)
		assert.InDelta(t, want, v, math.Abs(want)*1e-12, s)
	}
	_, err := ParseValue("abc")
	assert.Error(t, err)
	_, err = ParseValue("")
	assert.Error(t, err)
	_, err = ParseValue("1k5")
	assert.Error(t, err)
	_, err = ParseValue("1.2.3")
	assert.Error(t, err)
}

func TestReadFileZstd(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write([]byte(sampleNetlist))
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	path := filepath.Join(dir, "netlist.sp.zst")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	lines, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, lines, 4)

	_, err = ReadFile(filepath.Join(dir, "missing.sp"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseTwiceSameTopology(t *testing.T) {
	lines, err := ReadLines(strings.NewReader(sampleNetlist))
	require.NoError(t, err)
	a, err := Parse(lines)
	require.NoError(t, err)
	b, err := Parse(lines)
	require.NoError(t, err)
	assert.Equal(t, a.Counts(), b.Counts())
	assert.Equal(t, a.Nodes, b.Nodes)
	assert.Equal(t, a.Resistors, b.Resistors)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}
