// Package report 绘制 IR 压降图表。
package report

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"pdnfake/graph"
	"pdnfake/layout"
	"pdnfake/types"
)

// TileDrop 一个格子的压降统计
type TileDrop struct {
	layout.Tile
	Max  float64 // 最大压降
	Mean float64 // 平均压降
}

// TileMap 电流层压降网格
type TileMap struct {
	Grid  layout.Grid // 网格
	Tiles []TileDrop  // 非空格子
}

// NewTileMap 按 size 统计电流层每个格子的压降
func NewTileMap(g *graph.Graph, size float64) TileMap {
	ix := layout.NewIndex(g, types.CurrentLayer)
	m := TileMap{}
	if ix.Len() == 0 || !(size > 0) {
		return m
	}
	m.Grid = ix.Grid(size)
	for _, tile := range ix.Tiles(size) {
		drops := make([]float64, 0, len(tile.Nodes))
		for _, id := range tile.Nodes {
			n := g.Node(id)
			if n.IsVoltageNode {
				continue
			}
			drops = append(drops, g.Supply-n.Value)
		}
		if len(drops) == 0 {
			continue
		}
		m.Tiles = append(m.Tiles, TileDrop{
			Tile: tile,
			Max:  floats.Max(drops),
			Mean: stat.Mean(drops, nil),
		})
	}
	return m
}

// Range 最大压降的取值范围
func (m TileMap) Range() (lo, hi float64) {
	if len(m.Tiles) == 0 {
		return 0, 0
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, t := range m.Tiles {
		lo = min(lo, t.Max)
		hi = max(hi, t.Max)
	}
	return lo, hi
}

// Histogram 压降直方图,返回每个区间的下界和数量
func Histogram(drops []float64, bins int) (lower []float64, counts []float64) {
	if len(drops) == 0 || bins <= 0 {
		return nil, nil
	}
	x := slices.Clone(drops)
	slices.Sort(x)
	top := x[len(x)-1]
	hi := top + max(math.Abs(top)*1e-9, 1e-12)
	dividers := floats.Span(make([]float64, bins+1), x[0], hi)
	dividers[bins] = hi
	counts = stat.Histogram(nil, dividers, x, nil)
	return dividers[:bins], counts
}
