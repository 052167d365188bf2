package report

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	etypes "github.com/go-echarts/go-echarts/v2/types"

	"pdnfake/graph"
	"pdnfake/stats"
)

// 图表默认参数
const (
	DefaultBins     = 20 // 直方图区间数
	DefaultTileSize = 50 // 网格边长
)

// Charts 压降图表
type Charts struct {
	Title    string  // 页面标题
	Bins     int     // 直方图区间数
	TileSize float64 // 网格边长
	Record           // 生成过程记录
}

// NewCharts 创建图表
func NewCharts(title string) *Charts {
	return &Charts{Title: title, Bins: DefaultBins, TileSize: DefaultTileSize}
}

// legend 图例样式
func legend() charts.GlobalOpts {
	return charts.WithLegendOpts(opts.Legend{
		Type:   "scroll",
		Orient: "vertical",
		Right:  "10",
		Top:    "20",
		Bottom: "20",
	})
}

// theme 主题
func theme() charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		Theme: etypes.ThemeWesteros,
	})
}

// histogram 节点压降分布
func (c *Charts) histogram(g *graph.Graph) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		theme(),
		charts.WithTitleOpts(opts.Title{
			Title:    c.Title,
			Subtitle: "节点压降分布",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "节点数",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "压降(V)",
		}),
	)
	lower, counts := Histogram(stats.Drops(g), c.Bins)
	labels := make([]string, len(lower))
	items := make([]opts.BarData, len(counts))
	for i := range lower {
		labels[i] = strconv.FormatFloat(lower[i], 'g', 4, 64)
		items[i] = opts.BarData{Value: counts[i]}
	}
	bar.SetXAxis(labels).AddSeries("节点", items)
	return bar
}

// heatMap 电流层格子最大压降
func (c *Charts) heatMap(g *graph.Graph) *charts.HeatMap {
	m := NewTileMap(g, c.TileSize)
	lo, hi := m.Range()
	hm := charts.NewHeatMap()
	xs := make([]string, m.Grid.Cols)
	for i := range xs {
		xs[i] = strconv.Itoa(i)
	}
	ys := make([]string, m.Grid.Rows)
	for i := range ys {
		ys[i] = strconv.Itoa(i)
	}
	hm.SetGlobalOptions(
		theme(),
		charts.WithTitleOpts(opts.Title{
			Title:    "压降分布图",
			Subtitle: fmt.Sprintf("电流层网格 %g×%g 最大压降", m.Grid.Size, m.Grid.Size),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "category",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type: "category",
			Data: ys,
		}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			InRange: &opts.VisualMapInRange{
				Color: []string{"#50a3ba", "#eac736", "#d94e5d"},
			},
		}),
	)
	items := make([]opts.HeatMapData, 0, len(m.Tiles))
	for _, t := range m.Tiles {
		items = append(items, opts.HeatMapData{Value: [3]interface{}{t.Col, t.Row, t.Max}})
	}
	hm.SetXAxis(xs).AddSeries("最大压降", items)
	return hm
}

// convergence 每次尝试的电压差异
func (c *Charts) convergence() *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		theme(),
		charts.WithTitleOpts(opts.Title{
			Title:    "差异曲线",
			Subtitle: "每次修改后与原始电压的平均差异",
		}),
		legend(),
		charts.WithYAxisOpts(opts.YAxis{
			Scale: opts.Bool(true),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
	)
	xs := make([]int, len(c.Attempts))
	for i := range xs {
		xs[i] = i + 1
	}
	line.SetXAxis(xs)
	// 每个伪造网表一条曲线,未到达的尝试留空
	fakes := map[int][]opts.LineData{}
	var order []int
	for i, a := range c.Attempts {
		items, ok := fakes[a.Fake]
		if !ok {
			items = make([]opts.LineData, len(c.Attempts))
			order = append(order, a.Fake)
		}
		items[i] = opts.LineData{Value: a.Difference}
		fakes[a.Fake] = items
	}
	for _, fake := range order {
		line.AddSeries(fmt.Sprintf("Fake(%d)", fake), fakes[fake])
	}
	return line
}

// Render 输出 HTML 页面
func (c *Charts) Render(w io.Writer, g *graph.Graph) error {
	page := components.NewPage()
	page.PageTitle = c.Title
	page.AddCharts(
		c.histogram(g),
		c.heatMap(g),
	)
	if len(c.Attempts) > 0 {
		page.AddCharts(c.convergence())
	}
	return page.Render(w)
}

// WriteHTML 输出 HTML 文件
func (c *Charts) WriteHTML(filename string, g *graph.Graph) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	if err = c.Render(file, g); err != nil {
		return fmt.Errorf("绘制图表 %s 失败: %w", filename, err)
	}
	return nil
}
