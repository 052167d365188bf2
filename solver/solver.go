// Package solver 计算电源网络的直流稳态电压。
//
// 采用节点松弛迭代(Gauss-Seidel):每一轮按节点创建顺序依次更新,
// 每个节点立即使用本轮已经更新的相邻节点电压,结果依赖更新顺序。
// 电压源节点的电压固定,求解过程从不修改。
package solver

import (
	"math"

	"pdnfake/graph"
	"pdnfake/types"
)

// Result 求解结果
type Result struct {
	Iterations int  // 执行的迭代轮数
	Converged  bool // 所有节点在同一轮内达到精度
}

// Solver 直流松弛求解器
type Solver struct {
	Precision     float64 // 收敛精度
	MaxIterations int     // 最大迭代轮数
}

// NewSolver 使用默认参数创建求解器
func NewSolver() *Solver {
	return &Solver{
		Precision:     types.Precision,
		MaxIterations: types.MaxIterations,
	}
}

// sumOfNeighbors 计算 Σ(相邻节点电压/电阻)
func sumOfNeighbors(g *graph.Graph, n *types.Node) (sum float64) {
	for i, rid := range n.Resistors {
		sum += g.Nodes[n.Neighbors[i]].Value / g.Resistors[rid].Value
	}
	return sum
}

// sumOfCurrent 计算节点上全部电流源之和
func sumOfCurrent(g *graph.Graph, n *types.Node) (sum float64) {
	for _, cs := range n.CurrentSources {
		sum += g.CurrentSources[cs].Value
	}
	return sum
}

// skip 电压节点和悬空节点不参与求解
func skip(n *types.Node) bool { return n.IsVoltageNode || n.IsFloating() }

// Initialize 首次求解前的初始化,只在冻结原始电压前调用一次
func (s *Solver) Initialize(g *graph.Graph) {
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if skip(n) {
			continue
		}
		n.Current = sumOfCurrent(g, n)
		n.Value = (n.Current - sumOfNeighbors(g, n)) / n.InverseResistance
	}
}

// Reinitialize 只重新计算注入电流,保留上次求解的电压作为初值
func (s *Solver) Reinitialize(g *graph.Graph) {
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if skip(n) {
			continue
		}
		n.Current = sumOfCurrent(g, n)
	}
}

// Step 更新单个节点,返回该节点本轮是否稳定
func (s *Solver) Step(g *graph.Graph, id types.NodeID) bool {
	n := &g.Nodes[id]
	if skip(n) {
		return true
	}
	previous := n.Value
	n.Value = (sumOfNeighbors(g, n) - n.Current) / n.InverseResistance
	return math.Abs(n.Value-previous) < s.Precision
}

// Sweep 按节点顺序执行一轮迭代,返回稳定的节点数量
func (s *Solver) Sweep(g *graph.Graph) (settled int) {
	for id := range g.Nodes {
		if s.Step(g, id) {
			settled++
		}
	}
	return settled
}

// Solve 迭代直到所有节点在同一轮内稳定或达到最大迭代轮数。
// 达到最大轮数不是错误,由调用者根据 Result 决定如何处理。
func (s *Solver) Solve(g *graph.Graph) (result Result) {
	s.Reinitialize(g)
	total := len(g.Nodes)
	for result.Iterations < s.MaxIterations {
		result.Iterations++
		if s.Sweep(g) == total {
			result.Converged = true
			break
		}
	}
	g.MarkSolved()
	return result
}

// SolveAndSaveReal 求解原始网络并冻结每个节点的原始电压
func (s *Solver) SolveAndSaveReal(g *graph.Graph) Result {
	s.Initialize(g)
	result := s.Solve(g)
	for i := range g.Nodes {
		g.Nodes[i].RealValue = g.Nodes[i].Value
	}
	g.Baseline = true
	return result
}
