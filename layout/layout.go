// Package layout 按物理坐标索引电源网络节点。
package layout

import (
	"math"
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"pdnfake/graph"
	"pdnfake/types"
)

// tolerance 点在 R 树中的包围盒边长
const tolerance = 0.01

// MaxCells 网格格子数量上限,超过时自动放大格子边长
const MaxCells = 1 << 16

// entry R 树中的节点
type entry struct {
	id    types.NodeID
	point rtreego.Point
}

// Bounds 实现 rtreego.Spatial
func (e *entry) Bounds() rtreego.Rect {
	return e.point.ToRect(tolerance)
}

// Index 同一金属层节点的空间索引
type Index struct {
	Layer uint32         // 金属层
	tree  *rtreego.Rtree // R 树
	bound orb.Bound      // 节点范围
	count int            // 节点数量
}

// point 节点平面坐标
func point(c types.Coords) orb.Point {
	return orb.Point{float64(c.X), float64(c.Y)}
}

// NewIndex 为指定金属层的全部节点建立索引
func NewIndex(g *graph.Graph, layer uint32) *Index {
	ix := &Index{
		Layer: layer,
		tree:  rtreego.NewTree(2, 25, 50),
		bound: orb.Bound{Min: orb.Point{math.Inf(1), math.Inf(1)}, Max: orb.Point{math.Inf(-1), math.Inf(-1)}},
	}
	for id := range g.Nodes {
		n := &g.Nodes[id]
		if n.Coords.Layer != layer {
			continue
		}
		p := point(n.Coords)
		ix.tree.Insert(&entry{id: id, point: rtreego.Point{p[0], p[1]}})
		ix.bound = ix.bound.Extend(p)
		ix.count++
	}
	if ix.count == 0 {
		ix.bound = orb.Bound{}
	}
	return ix
}

// Len 节点数量
func (ix *Index) Len() int { return ix.count }

// Bound 节点坐标范围,没有节点时为零值
func (ix *Index) Bound() orb.Bound { return ix.bound }

// search 查询与范围相交的节点
func (ix *Index) search(b orb.Bound) []*entry {
	b = b.Pad(tolerance)
	rect, err := rtreego.NewRect(
		rtreego.Point{b.Min[0], b.Min[1]},
		[]float64{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1]},
	)
	if err != nil {
		return nil
	}
	results := ix.tree.SearchIntersect(rect)
	entries := make([]*entry, 0, len(results))
	for _, item := range results {
		entries = append(entries, item.(*entry))
	}
	return entries
}

// Tile 网格中的一块区域
type Tile struct {
	Row   int            // 行号,对应 Y
	Col   int            // 列号,对应 X
	Bound orb.Bound      // 区域范围
	Nodes []types.NodeID // 区域内节点
}

// Grid 将节点范围划分为边长 size 的网格
type Grid struct {
	Size  float64   // 网格边长
	Rows  int       // 行数
	Cols  int       // 列数
	Bound orb.Bound // 节点范围
}

// cells 覆盖 length 需要的格数
func cells(length, size float64) float64 {
	return math.Floor(length/size) + 1
}

// Grid 创建网格,size 必须大于 0。
// 格子总数超过 MaxCells 时按比例放大边长,返回的 Size 为实际边长。
func (ix *Index) Grid(size float64) Grid {
	width := ix.bound.Max[0] - ix.bound.Min[0]
	height := ix.bound.Max[1] - ix.bound.Min[1]
	for {
		n := cells(width, size) * cells(height, size)
		if n <= MaxCells {
			break
		}
		size *= max(math.Sqrt(n/MaxCells), 1.01)
	}
	return Grid{
		Size:  size,
		Rows:  int(cells(height, size)),
		Cols:  int(cells(width, size)),
		Bound: ix.bound,
	}
}

// Cell 坐标所在的格子
func (grid Grid) Cell(p orb.Point) (row, col int) {
	col = int(math.Floor((p[0] - grid.Bound.Min[0]) / grid.Size))
	row = int(math.Floor((p[1] - grid.Bound.Min[1]) / grid.Size))
	return min(max(row, 0), grid.Rows-1), min(max(col, 0), grid.Cols-1)
}

// TileBound 格子的范围
func (grid Grid) TileBound(row, col int) orb.Bound {
	left := grid.Bound.Min[0] + float64(col)*grid.Size
	bottom := grid.Bound.Min[1] + float64(row)*grid.Size
	return orb.Bound{
		Min: orb.Point{left, bottom},
		Max: orb.Point{left + grid.Size, bottom + grid.Size},
	}
}

// Tiles 按网格划分节点,每个节点恰好属于一个格子,跳过空格子。
// 格子按行、列升序排列。
func (ix *Index) Tiles(size float64) []Tile {
	if ix.count == 0 || !(size > 0) {
		return nil
	}
	grid := ix.Grid(size)
	buckets := make(map[[2]int][]types.NodeID)
	for _, e := range ix.search(ix.bound) {
		row, col := grid.Cell(orb.Point{e.point[0], e.point[1]})
		key := [2]int{row, col}
		buckets[key] = append(buckets[key], e.id)
	}
	tiles := make([]Tile, 0, len(buckets))
	for key, nodes := range buckets {
		slices.Sort(nodes)
		tiles = append(tiles, Tile{
			Row:   key[0],
			Col:   key[1],
			Bound: grid.TileBound(key[0], key[1]),
			Nodes: nodes,
		})
	}
	slices.SortFunc(tiles, func(a, b Tile) int {
		if a.Row != b.Row {
			return a.Row - b.Row
		}
		return a.Col - b.Col
	})
	return tiles
}

// Extent 全部节点(接地节点除外)的坐标范围
func Extent(g *graph.Graph) orb.Bound {
	var points orb.MultiPoint
	for i := range g.Nodes {
		if g.Nodes[i].Name == types.GroundName {
			continue
		}
		points = append(points, point(g.Nodes[i].Coords))
	}
	return points.Bound()
}
