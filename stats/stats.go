// Package stats 比较伪造网络与原始网络的 IR 压降。
package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"pdnfake/graph"
)

// Drop IR 压降统计
type Drop struct {
	Max  float64 `yaml:"max"`  // 最大压降
	Min  float64 `yaml:"min"`  // 最小压降
	Mean float64 `yaml:"mean"` // 平均压降
}

// Compare 计算所有非电压节点 |原始电压−当前电压| / |电源电压−原始电压| 的平均值。
// 分母为零或没有非电压节点时返回 Inf/NaN,不视为错误。
func Compare(g *graph.Graph) float64 {
	diffs := make([]float64, 0, len(g.Nodes))
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.IsVoltageNode {
			continue
		}
		diffs = append(diffs, math.Abs((n.RealValue-n.Value)/(g.Supply-n.RealValue)))
	}
	if len(diffs) == 0 {
		return math.NaN()
	}
	return stat.Mean(diffs, nil)
}

// Drops 所有非电压节点的压降,按节点顺序
func Drops(g *graph.Graph) []float64 {
	drops := make([]float64, 0, len(g.Nodes))
	for i := range g.Nodes {
		if !g.Nodes[i].IsVoltageNode {
			drops = append(drops, g.Supply-g.Nodes[i].Value)
		}
	}
	return drops
}

// IRDrop 计算非电压节点压降的最大值、最小值和平均值
func IRDrop(g *graph.Graph) Drop {
	drops := Drops(g)
	if len(drops) == 0 {
		nan := math.NaN()
		return Drop{Max: nan, Min: nan, Mean: nan}
	}
	return Drop{
		Max:  floats.Max(drops),
		Min:  floats.Min(drops),
		Mean: stat.Mean(drops, nil),
	}
}

// Summary 多个伪造网络的累计统计
type Summary struct {
	Count      int     `yaml:"count"`      // 伪造网络数量
	Drop       Drop    `yaml:"drop"`       // 压降统计之和
	Difference float64 `yaml:"difference"` // 平均差异之和
}

// Add 累加一个伪造网络的统计
func (s *Summary) Add(drop Drop, difference float64) {
	s.Count++
	s.Drop.Max += drop.Max
	s.Drop.Min += drop.Min
	s.Drop.Mean += drop.Mean
	s.Difference += difference
}

// Mean 所有伪造网络统计的平均值
func (s *Summary) Mean() (Drop, float64) {
	if s.Count == 0 {
		nan := math.NaN()
		return Drop{Max: nan, Min: nan, Mean: nan}, nan
	}
	n := float64(s.Count)
	return Drop{Max: s.Drop.Max / n, Min: s.Drop.Min / n, Mean: s.Drop.Mean / n}, s.Difference / n
}
