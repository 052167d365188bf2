package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdnfake/graph"
	"pdnfake/load"
	"pdnfake/types"
)

const network = `V1 n1_m9_0_0 0 1.0
R1 n1_m9_0_0 n1_m1_0_0 0.1
R2 n1_m1_0_0 n1_m1_10_0 0.2
I1 n1_m1_10_0 0 0.01
R3 n1_m1_100_0 n1_m1_110_0 0.5
I2 n1_m1_50_50 0 0.02
`

func TestDiagnose(t *testing.T) {
	g, err := load.ParseString(network)
	require.NoError(t, err)
	d := g.Diagnose()
	assert.False(t, d.Healthy())
	assert.Equal(t, 1, d.Vias)
	assert.Equal(t, 3, d.Components)
	require.Len(t, d.Floating, 1)
	assert.Equal(t, "n1_m1_50_50", g.Node(d.Floating[0]).Name)
	require.Len(t, d.Islands, 1)
	require.Len(t, d.Islands[0], 2)
	assert.Equal(t, "n1_m1_100_0", g.Node(d.Islands[0][0]).Name)

	healthy, err := load.ParseString(network[:len("V1 n1_m9_0_0 0 1.0\nR1 n1_m9_0_0 n1_m1_0_0 0.1\n")])
	require.NoError(t, err)
	assert.True(t, healthy.Diagnose().Healthy())
}

func TestFingerprint(t *testing.T) {
	a, err := load.ParseString(network)
	require.NoError(t, err)
	b, err := load.ParseString(network)
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 64)

	b.CurrentSource(0).Value *= 2
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestAttachDetach(t *testing.T) {
	g, err := load.ParseString(network)
	require.NoError(t, err)
	from := g.DetachCurrentSource(0)
	assert.Equal(t, "n1_m1_10_0", g.Node(from).Name)
	assert.Empty(t, g.Node(from).CurrentSources)
	assert.Equal(t, types.NoneID, g.CurrentSource(0).Node)
	assert.Equal(t, types.NoneID, g.DetachCurrentSource(0), "重复断开")

	to := types.NodeID(1)
	g.AttachCurrentSource(0, to)
	assert.Equal(t, to, g.CurrentSource(0).Node)
	assert.Equal(t, g.Node(to).Coords, g.CurrentSource(0).Coords)
	assert.Equal(t, []types.CurrentSourceID{0}, g.Node(to).CurrentSources)
}

func TestSeed(t *testing.T) {
	a := graph.NewGraph(graph.WithSeed(42))
	b := graph.NewGraph(graph.WithSeed(42))
	assert.Equal(t, a.Rand().Uint64(), b.Rand().Uint64())
	seed, ok := a.Seed()
	assert.True(t, ok)
	assert.Equal(t, uint64(42), seed)

	first := a.Rand().Uint64()
	a.Reseed()
	a.Rand().Uint64()
	assert.Equal(t, first, a.Rand().Uint64(), "重新播种后序列重复")

	_, ok = graph.NewGraph().Seed()
	assert.False(t, ok)
	assert.Equal(t, graph.StateEmpty, graph.NewGraph().State)
}
