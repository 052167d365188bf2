package solver

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"pdnfake/graph"
	"pdnfake/types"
)

// 直接求解错误
var (
	ErrTooLarge = errors.New("网络规模超过直接求解上限")
	ErrSingular = errors.New("电导矩阵奇异,存在无法到达电压源的节点")
)

// Direct 组装约化电导矩阵并用 Cholesky 分解求出精确解,
// 用于在小规模网络上校验松弛迭代的结果。
//
// 对每个待求节点 i: G_i·v_i − Σ v_j/R_ij = −I_i,
// 其中相邻电压节点的贡献移到右侧。
func Direct(g *graph.Graph) error {
	index := make([]int, len(g.Nodes))
	unknowns := 0
	for id := range g.Nodes {
		if skip(&g.Nodes[id]) {
			index[id] = types.NoneID
			continue
		}
		index[id] = unknowns
		unknowns++
	}
	if unknowns == 0 {
		g.MarkSolved()
		return nil
	}
	if unknowns > types.DirectLimit {
		return fmt.Errorf("%w: %d > %d", ErrTooLarge, unknowns, types.DirectLimit)
	}
	a := mat.NewSymDense(unknowns, nil)
	b := mat.NewVecDense(unknowns, nil)
	for id := range g.Nodes {
		row := index[id]
		if row == types.NoneID {
			continue
		}
		n := &g.Nodes[id]
		a.SetSym(row, row, a.At(row, row)+n.InverseResistance)
		rhs := -sumOfCurrent(g, n)
		for k, rid := range n.Resistors {
			neighbor := n.Neighbors[k]
			conductance := 1 / g.Resistors[rid].Value
			col := index[neighbor]
			switch {
			case neighbor == id:
				a.SetSym(row, row, a.At(row, row)-conductance)
			case col == types.NoneID:
				rhs += g.Nodes[neighbor].Value * conductance
			case col > row:
				// 每条边只在上三角记录一次
				a.SetSym(row, col, a.At(row, col)-conductance)
			}
		}
		b.SetVec(row, rhs)
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return ErrSingular
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, b); err != nil {
		return fmt.Errorf("%w: %v", ErrSingular, err)
	}
	for id, row := range index {
		if row != types.NoneID {
			g.Nodes[id].Value = x.AtVec(row)
		}
	}
	g.MarkSolved()
	return nil
}
