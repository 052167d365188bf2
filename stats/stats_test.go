package stats

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdnfake/graph"
	"pdnfake/types"
)

// newGraph 创建一个电压节点和若干普通节点
func newGraph(supply float64, real, values []float64) *graph.Graph {
	g := graph.NewGraph(graph.WithSeed(1))
	g.Supply = supply
	vdd := g.AddNode("vdd", types.Coords{Layer: 9})
	g.Node(vdd).IsVoltageNode = true
	g.Node(vdd).Value = supply
	for i := range real {
		id := g.AddNode("n", types.Coords{Layer: 1, X: uint32(i)})
		g.Node(id).RealValue = real[i]
		g.Node(id).Value = values[i]
	}
	return g
}

func TestCompare(t *testing.T) {
	g := newGraph(1.0, []float64{0.9, 0.8}, []float64{0.85, 0.9})
	// (0.05/0.1 + 0.1/0.2) / 2
	assert.InDelta(t, 0.5, Compare(g), 1e-12)
}

func TestCompareDegenerate(t *testing.T) {
	g := newGraph(1.0, []float64{1.0}, []float64{0.9})
	assert.True(t, math.IsInf(Compare(g), 1))

	g = newGraph(1.0, []float64{1.0}, []float64{1.0})
	assert.True(t, math.IsNaN(Compare(g)))

	g = newGraph(1.0, nil, nil)
	assert.True(t, math.IsNaN(Compare(g)))
}

func TestIRDrop(t *testing.T) {
	g := newGraph(1.2, []float64{0, 0, 0}, []float64{1.1, 1.0, 1.15})
	drop := IRDrop(g)
	assert.InDelta(t, 0.2, drop.Max, 1e-12)
	assert.InDelta(t, 0.05, drop.Min, 1e-12)
	assert.InDelta(t, 0.35/3, drop.Mean, 1e-12)
	assert.Len(t, Drops(g), 3)
}

func TestIRDropOrdering(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for range 200 {
		n := 1 + rng.IntN(50)
		values := make([]float64, n)
		for i := range values {
			values[i] = rng.Float64() * 1.8
		}
		drop := IRDrop(newGraph(1.8, make([]float64, n), values))
		require.GreaterOrEqual(t, drop.Max, drop.Mean)
		require.GreaterOrEqual(t, drop.Mean, drop.Min)
	}
}

func TestIRDropEmpty(t *testing.T) {
	drop := IRDrop(newGraph(1.0, nil, nil))
	assert.True(t, math.IsNaN(drop.Max))
	assert.True(t, math.IsNaN(drop.Min))
	assert.True(t, math.IsNaN(drop.Mean))
}

func TestSummary(t *testing.T) {
	var s Summary
	_, diff := s.Mean()
	assert.True(t, math.IsNaN(diff))

	s.Add(Drop{Max: 0.2, Min: 0.0, Mean: 0.1}, 0.1)
	s.Add(Drop{Max: 0.4, Min: 0.2, Mean: 0.3}, 0.3)
	drop, diff := s.Mean()
	assert.Equal(t, 2, s.Count)
	assert.InDelta(t, 0.3, drop.Max, 1e-12)
	assert.InDelta(t, 0.1, drop.Min, 1e-12)
	assert.InDelta(t, 0.2, drop.Mean, 1e-12)
	assert.InDelta(t, 0.2, diff, 1e-12)
}
