package report

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"pdnfake/graph"
)

// ErrNoTiles 电流层没有可绘制的节点
var ErrNoTiles = errors.New("电流层没有节点")

// 图片尺寸
const (
	imageWidth  = 6 * vg.Inch
	imageHeight = 5 * vg.Inch
)

// tileGrid 实现 plotter.GridXYZ,空格子为 NaN
type tileGrid struct {
	m      TileMap
	values [][]float64 // [col][row]
	lo, hi float64
}

// newTileGrid 由压降网格创建
func newTileGrid(m TileMap) *tileGrid {
	values := make([][]float64, m.Grid.Cols)
	for c := range values {
		values[c] = make([]float64, m.Grid.Rows)
		for r := range values[c] {
			values[c][r] = math.NaN()
		}
	}
	for _, t := range m.Tiles {
		values[t.Col][t.Row] = t.Max
	}
	lo, hi := m.Range()
	if hi <= lo {
		hi = lo + max(math.Abs(lo)*1e-6, 1e-9)
	}
	return &tileGrid{m: m, values: values, lo: lo, hi: hi}
}

func (t *tileGrid) Dims() (c, r int) { return t.m.Grid.Cols, t.m.Grid.Rows }
func (t *tileGrid) Z(c, r int) float64 { return t.values[c][r] }
func (t *tileGrid) Min() float64 { return t.lo }
func (t *tileGrid) Max() float64 { return t.hi }
func (t *tileGrid) X(c int) float64 { return t.m.Grid.Bound.Min[0] + (float64(c)+0.5)*t.m.Grid.Size }
func (t *tileGrid) Y(r int) float64 { return t.m.Grid.Bound.Min[1] + (float64(r)+0.5)*t.m.Grid.Size }

// HeatMap 电流层最大压降热力图
func HeatMap(g *graph.Graph, size float64) (*plot.Plot, error) {
	m := NewTileMap(g, size)
	if len(m.Tiles) == 0 {
		return nil, ErrNoTiles
	}
	h := plotter.NewHeatMap(newTileGrid(m), palette.Heat(16, 1))
	p := plot.New()
	p.Title.Text = "IR drop"
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Add(h)
	return p, nil
}

// WriteHeatMap 输出 PNG 热力图
func WriteHeatMap(w io.Writer, g *graph.Graph, size float64) error {
	p, err := HeatMap(g, size)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(imageWidth, imageHeight, "png")
	if err != nil {
		return fmt.Errorf("绘制热力图失败: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SaveHeatMap 保存热力图,格式由扩展名决定
func SaveHeatMap(filename string, g *graph.Graph, size float64) error {
	p, err := HeatMap(g, size)
	if err != nil {
		return err
	}
	return p.Save(imageWidth, imageHeight, filename)
}
