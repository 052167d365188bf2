package graph

import (
	"slices"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"pdnfake/types"
)

// Diagnosis 网络连通性检查结果
type Diagnosis struct {
	Floating   []types.NodeID   // 没有连接电阻的节点
	Islands    [][]types.NodeID // 无法到达电压源的连通分量
	Components int              // 连通分量数量
	Vias       int              // 跨层电阻数量
}

// Healthy 所有节点都能到达电压源
func (d Diagnosis) Healthy() bool { return len(d.Floating) == 0 && len(d.Islands) == 0 }

// Diagnose 检查悬空节点和孤岛。
// 孤岛中的节点求解时永远不会收敛到有意义的值。
func (g *Graph) Diagnose() Diagnosis {
	var d Diagnosis
	ug := simple.NewUndirectedGraph()
	for id := range g.Nodes {
		ug.AddNode(simple.Node(id))
		if g.Nodes[id].IsFloating() && !g.Nodes[id].IsVoltageNode {
			d.Floating = append(d.Floating, id)
		}
	}
	for i := range g.Resistors {
		r := &g.Resistors[i]
		if r.IsVia() {
			d.Vias++
		}
		if r.Nodes[0] == r.Nodes[1] {
			continue
		}
		ug.SetEdge(simple.Edge{F: simple.Node(r.Nodes[0]), T: simple.Node(r.Nodes[1])})
	}
	components := topo.ConnectedComponents(ug)
	d.Components = len(components)
	for _, component := range components {
		if len(component) == 1 && g.Nodes[component[0].ID()].IsFloating() {
			continue
		}
		if slices.ContainsFunc(component, func(n gonum.Node) bool {
			return g.Nodes[n.ID()].IsVoltageNode
		}) {
			continue
		}
		island := make([]types.NodeID, len(component))
		for i, n := range component {
			island[i] = types.NodeID(n.ID())
		}
		slices.Sort(island)
		d.Islands = append(d.Islands, island)
	}
	return d
}
