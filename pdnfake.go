// Package pdnfake 生成伪造的电源网络网表。
//
// PDN 保存原始网表的元件行,每次 Reset 都从这些行重新构建工作图;
// 求解、修改和导出都作用在当前工作图上。
package pdnfake

import (
	"fmt"
	"log"
	"math"

	"pdnfake/export"
	"pdnfake/graph"
	"pdnfake/load"
	"pdnfake/perturb"
	"pdnfake/solver"
	"pdnfake/stats"
)

// ErrEmpty 没有加载网表
var ErrEmpty = load.ErrEmpty

// Option PDN 配置
type Option func(*PDN)

// WithSeed 固定随机种子
func WithSeed(seed uint64) Option {
	return func(p *PDN) {
		p.graphOpts = append(p.graphOpts, graph.WithSeed(seed))
	}
}

// WithPrecision 设置求解精度
func WithPrecision(precision float64) Option {
	return func(p *PDN) { p.solver.Precision = precision }
}

// WithMaxIterations 设置最大迭代次数
func WithMaxIterations(n int) Option {
	return func(p *PDN) { p.solver.MaxIterations = n }
}

// WithLogger 设置加载日志,默认使用标准日志
func WithLogger(logger *log.Logger) Option {
	return func(p *PDN) { p.logger = logger }
}

// PDN 电源网络
type PDN struct {
	source    string         // 网表来源
	lines     []string       // 元件行
	graph     *graph.Graph   // 工作图
	solver    *solver.Solver // 求解器
	graphOpts []graph.Option // 构建选项
	logger    *log.Logger    // 日志
}

// New 创建空的电源网络
func New(opts ...Option) *PDN {
	p := &PDN{solver: solver.NewSolver()}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.Default()
	}
	return p
}

// Load 读取网表文件并构建工作图,失败时保持为空
func (p *PDN) Load(filename string) error {
	lines, err := load.ReadFile(filename)
	if err != nil {
		p.clear()
		return fmt.Errorf("加载网表失败: %w", err)
	}
	if err := p.LoadLines(lines); err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	p.source = filename
	p.logger.Printf("加载网表 %s: %d 行, %+v", filename, len(lines), p.graph.Counts())
	return nil
}

// LoadLines 使用元件行构建工作图
func (p *PDN) LoadLines(lines []string) error {
	p.clear()
	if len(lines) == 0 {
		return ErrEmpty
	}
	p.lines = lines
	if err := p.Reset(); err != nil {
		p.clear()
		return err
	}
	return nil
}

// clear 释放全部内容
func (p *PDN) clear() {
	p.Close()
	p.lines = nil
	p.source = ""
}

// Reset 从保存的元件行重新构建工作图,随机数生成器同时重置
func (p *PDN) Reset() error {
	if len(p.lines) == 0 {
		return ErrEmpty
	}
	g, err := load.Parse(p.lines, p.graphOpts...)
	if err != nil {
		return err
	}
	p.Close()
	p.graph = g
	return nil
}

// Source 网表来源
func (p *PDN) Source() string { return p.source }

// Lines 元件行数量
func (p *PDN) Lines() int { return len(p.lines) }

// Graph 当前工作图,未加载时为 nil
func (p *PDN) Graph() *graph.Graph { return p.graph }

// Solver 求解器
func (p *PDN) Solver() *solver.Solver { return p.solver }

// SolveDC 从当前电压开始求解
func (p *PDN) SolveDC() (solver.Result, error) {
	if p.graph == nil {
		return solver.Result{}, ErrEmpty
	}
	return p.solver.Solve(p.graph), nil
}

// SolveDCAndSaveRealValues 初始化并求解,结果作为原始电压保存
func (p *PDN) SolveDCAndSaveRealValues() (solver.Result, error) {
	if p.graph == nil {
		return solver.Result{}, ErrEmpty
	}
	return p.solver.SolveAndSaveReal(p.graph), nil
}

// Compare 与原始电压的平均相对差异
func (p *PDN) Compare() float64 {
	if p.graph == nil {
		return math.NaN()
	}
	return stats.Compare(p.graph)
}

// IRDrop 压降统计
func (p *PDN) IRDrop() stats.Drop {
	if p.graph == nil {
		return stats.Drop{Max: math.NaN(), Min: math.NaN(), Mean: math.NaN()}
	}
	return stats.IRDrop(p.graph)
}

// Mutate 使用指定策略修改工作图
func (p *PDN) Mutate(strategy perturb.Strategy, delta float64) (perturb.Change, error) {
	if p.graph == nil {
		return perturb.Change{}, ErrEmpty
	}
	return perturb.Apply(p.graph, strategy, delta)
}

// WriteNetlist 导出网表
func (p *PDN) WriteNetlist(filename string) error {
	if p.graph == nil {
		return ErrEmpty
	}
	return export.WriteNetlistFile(filename, p.graph)
}

// WriteIRDrop 导出压降报告
func (p *PDN) WriteIRDrop(filename string) error {
	if p.graph == nil {
		return ErrEmpty
	}
	return export.WriteIRDropFile(filename, p.graph)
}

// Fingerprint 当前工作图的摘要
func (p *PDN) Fingerprint() string {
	if p.graph == nil {
		return ""
	}
	return p.graph.Fingerprint()
}

// Diagnose 连通性检查
func (p *PDN) Diagnose() (graph.Diagnosis, error) {
	if p.graph == nil {
		return graph.Diagnosis{}, ErrEmpty
	}
	return p.graph.Diagnose(), nil
}

// Close 释放工作图,保留元件行
func (p *PDN) Close() {
	if p.graph != nil {
		p.graph.Close()
		p.graph = nil
	}
}
