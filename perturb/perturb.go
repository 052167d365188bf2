// Package perturb 通过修改电流源注入来生成伪造的电源网络。
//
// 三种策略都直接修改图,不会重新求解;
// 电阻和电压源的拓扑保持不变,节点和电阻从不删除。
package perturb

import (
	"fmt"
	"math"
	"slices"
	"strconv"

	"pdnfake/graph"
	"pdnfake/types"
)

// Strategy 修改策略,数值与命令行模式一致
type Strategy int

// 修改策略定义
const (
	PositionInversion Strategy = 1 // 移动原始电流源到新节点
	SourceInjection   Strategy = 2 // 在空闲节点添加新的电流源
	ValueScaling      Strategy = 3 // 按比例放大电流源
)

var strategyString = map[Strategy]string{
	PositionInversion: "PositionInversion",
	SourceInjection:   "SourceInjection",
	ValueScaling:      "ValueScaling",
}

// String 策略名称
func (s Strategy) String() string {
	if name, ok := strategyString[s]; ok {
		return name
	}
	return "Strategy(" + strconv.Itoa(int(s)) + ")"
}

// Valid 是否为已知策略
func (s Strategy) Valid() bool {
	_, ok := strategyString[s]
	return ok
}

// Injection 新增的电流源
type Injection struct {
	Source types.CurrentSourceID `yaml:"source"`
	Node   types.NodeID          `yaml:"node"`
	Name   string                `yaml:"name"`
	Value  float64               `yaml:"value"`
}

// Move 被移动的电流源
type Move struct {
	Source  types.CurrentSourceID `yaml:"source"`
	From    types.NodeID          `yaml:"from"`
	To      types.NodeID          `yaml:"to"`
	OldName string                `yaml:"oldName"`
	NewName string                `yaml:"newName"`
}

// Change 一次修改的记录
type Change struct {
	Requested Strategy    `yaml:"requested"` // 请求的策略
	Applied   Strategy    `yaml:"applied"`   // 实际执行的策略
	Delta     float64     `yaml:"delta"`     // 修改幅度
	Scale     float64     `yaml:"scale"`     // 电流源缩放系数,未缩放时为 0
	Scaled    int         `yaml:"scaled"`    // 被缩放的电流源数量
	Injected  []Injection `yaml:"injected"`  // 新增的电流源
	Moved     []Move      `yaml:"moved"`     // 移动的电流源
}

// Empty 没有对图做任何修改
func (c Change) Empty() bool {
	return c.Scaled == 0 && len(c.Injected) == 0 && len(c.Moved) == 0
}

// String 简要描述
func (c Change) String() string {
	return fmt.Sprintf("%s->%s δ=%g 缩放:%d 新增:%d 移动:%d",
		c.Requested, c.Applied, c.Delta, c.Scaled, len(c.Injected), len(c.Moved))
}

// Apply 执行指定策略
func Apply(g *graph.Graph, strategy Strategy, delta float64) (Change, error) {
	switch strategy {
	case PositionInversion:
		return InvertPositions(g, delta), nil
	case SourceInjection:
		return InjectSources(g, delta), nil
	case ValueScaling:
		return ScaleValues(g, delta), nil
	}
	return Change{}, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(strategy))
}

// ScaleValues 所有电流源乘以 (1+δ)
func ScaleValues(g *graph.Graph, delta float64) Change {
	change := Change{Requested: ValueScaling, Applied: ValueScaling, Delta: delta, Scale: 1 + delta}
	for i := range g.CurrentSources {
		g.CurrentSources[i].Value *= change.Scale
	}
	change.Scaled = len(g.CurrentSources)
	g.MarkMutated()
	return change
}

// candidates 可以放置伪造电流源的节点,按节点顺序
func candidates(g *graph.Graph) []types.NodeID {
	var ids []types.NodeID
	for id := range g.Nodes {
		if g.Nodes[id].IsCandidate() {
			ids = append(ids, id)
		}
	}
	return ids
}

// originals 仍在原始节点上的电流源
func originals(g *graph.Graph) []types.CurrentSourceID {
	var ids []types.CurrentSourceID
	for id := range g.CurrentSources {
		node := g.CurrentSources[id].Node
		if node != types.NoneID && !g.Nodes[node].IsSynthetic {
			ids = append(ids, id)
		}
	}
	return ids
}

// valueRange 现有电流源的取值范围
func valueRange(g *graph.Graph) (lo, hi float64) {
	if len(g.CurrentSources) == 0 {
		return 0, 0
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := range g.CurrentSources {
		lo = min(lo, g.CurrentSources[i].Value)
		hi = max(hi, g.CurrentSources[i].Value)
	}
	return lo, hi
}

// clampCount 限制抽取数量在 [0, n] 之间
func clampCount(count float64, n int) int {
	if math.IsNaN(count) || count <= 0 {
		return 0
	}
	if count >= float64(n) {
		return n
	}
	return int(count)
}

// markSourced 节点放置了伪造电流源
func markSourced(n *types.Node) {
	n.CanConnectCurrent = false
	n.IsSynthetic = true
}

// InjectSources 在 ceil(候选数×δ) 个随机候选节点上添加新电流源,
// 电流值在现有电流源范围内均匀抽取。没有候选节点时退化为 ScaleValues。
func InjectSources(g *graph.Graph, delta float64) Change {
	pool := candidates(g)
	if len(pool) == 0 {
		change := ScaleValues(g, delta)
		change.Requested = SourceInjection
		return change
	}
	change := Change{Requested: SourceInjection, Applied: SourceInjection, Delta: delta}
	lo, hi := valueRange(g)
	count := clampCount(math.Ceil(float64(len(pool))*delta), len(pool))
	picked := drawDistinct(g, len(pool), count)
	rng := g.Rand()
	for _, k := range picked {
		node := pool[k]
		name := "I" + strconv.Itoa(len(g.CurrentSources)+1)
		value := lo + rng.Float64()*(hi-lo)
		id := g.AddCurrentSource(name, node, value)
		markSourced(g.Node(node))
		change.Injected = append(change.Injected, Injection{Source: id, Node: node, Name: name, Value: value})
	}
	g.MarkMutated()
	return change
}

// InvertPositions 将 floor(min(原始电流源数, 候选节点数)×δ) 个原始电流源
// 移动到随机候选节点。任一集合为空时退化为 InjectSources。
func InvertPositions(g *graph.Graph, delta float64) Change {
	sources, pool := originals(g), candidates(g)
	if len(sources) == 0 || len(pool) == 0 {
		change := InjectSources(g, delta)
		change.Requested = PositionInversion
		return change
	}
	change := Change{Requested: PositionInversion, Applied: PositionInversion, Delta: delta}
	n := min(len(sources), len(pool))
	count := clampCount(math.Floor(float64(n)*delta), n)
	disconnect := drawDistinct(g, len(sources), count)
	connect := drawDistinct(g, len(pool), count)
	for i := range disconnect {
		cs, to := sources[disconnect[i]], pool[connect[i]]
		src := g.CurrentSource(cs)
		move := Move{Source: cs, To: to, OldName: src.Name}

		move.From = g.DetachCurrentSource(cs)
		old := g.Node(move.From)
		old.CanConnectCurrent = true
		old.IsSynthetic = true

		src.Name += types.MovedSuffix
		g.AttachCurrentSource(cs, to)
		markSourced(g.Node(to))

		move.NewName = src.Name
		change.Moved = append(change.Moved, move)
	}
	g.MarkMutated()
	return change
}

// drawDistinct 从 [0,n) 中均匀抽取 count 个不重复下标,重复时重新抽取,
// 结果按降序排列
func drawDistinct(g *graph.Graph, n, count int) []int {
	rng := g.Rand()
	seen := make(map[int]struct{}, count)
	picked := make([]int, 0, count)
	for len(picked) < count {
		k := rng.IntN(n)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		picked = append(picked, k)
	}
	slices.SortFunc(picked, func(a, b int) int { return b - a })
	return picked
}
