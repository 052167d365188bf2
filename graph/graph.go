// Package graph 保存电源网络的全部元件。
// 元件存放在平坦数组中,相互之间通过整数索引引用,
// 节点、电阻与电源之间的环形关系不会形成所有权环。
package graph

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"slices"

	"pdnfake/types"
)

// State 图状态
type State int

// 图状态定义
const (
	StateEmpty   State = iota // 未创建
	StateBuilt                // 已解析
	StateMutated              // 已修改,等待求解
	StateSolved               // 已求解
)

var stateString = map[State]string{
	StateEmpty:   "Empty",
	StateBuilt:   "Built",
	StateMutated: "Mutated",
	StateSolved:  "Solved",
}

// String 状态名称
func (s State) String() string {
	if name, ok := stateString[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Option 图配置
type Option func(*Graph)

// WithSeed 使用固定随机种子,每次重建都会得到相同的随机序列
func WithSeed(seed uint64) Option {
	return func(g *Graph) {
		g.seed = &seed
	}
}

// Graph 电源网络
type Graph struct {
	Supply         float64               // 全局电源电压
	State          State                 // 当前状态
	Baseline       bool                  // 已冻结原始电压
	Nodes          []types.Node          // 节点列表
	Resistors      []types.Resistor      // 电阻列表
	CurrentSources []types.CurrentSource // 电流源列表
	VoltageSources []types.VoltageSource // 电压源列表
	rand           *rand.Rand            // 随机数生成器
	seed           *uint64               // 注入的随机种子
}

// NewGraph 创建空图
func NewGraph(opts ...Option) *Graph {
	g := &Graph{}
	for _, opt := range opts {
		opt(g)
	}
	g.Reseed()
	return g
}

// Reseed 重置随机数生成器
func (g *Graph) Reseed() {
	if g.seed != nil {
		g.rand = rand.New(rand.NewPCG(*g.seed, *g.seed))
		return
	}
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		// crypto/rand 在受支持的平台上不会失败
		panic(fmt.Errorf("读取随机种子失败: %w", err))
	}
	g.rand = rand.New(rand.NewPCG(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])))
}

// Rand 随机数生成器
func (g *Graph) Rand() *rand.Rand { return g.rand }

// Seed 注入的随机种子
func (g *Graph) Seed() (uint64, bool) {
	if g.seed == nil {
		return 0, false
	}
	return *g.seed, true
}

// Node 获取节点
func (g *Graph) Node(id types.NodeID) *types.Node { return &g.Nodes[id] }

// Resistor 获取电阻
func (g *Graph) Resistor(id types.ResistorID) *types.Resistor { return &g.Resistors[id] }

// CurrentSource 获取电流源
func (g *Graph) CurrentSource(id types.CurrentSourceID) *types.CurrentSource {
	return &g.CurrentSources[id]
}

// VoltageSource 获取电压源
func (g *Graph) VoltageSource(id types.VoltageSourceID) *types.VoltageSource {
	return &g.VoltageSources[id]
}

// AddNode 添加节点
func (g *Graph) AddNode(name string, coords types.Coords) types.NodeID {
	g.Nodes = append(g.Nodes, types.NewNode(name, coords))
	return len(g.Nodes) - 1
}

// AddResistor 添加电阻并建立双向连接
func (g *Graph) AddResistor(name string, a, b types.NodeID, value float64) types.ResistorID {
	id := len(g.Resistors)
	g.Resistors = append(g.Resistors, types.Resistor{
		Name:  name,
		Value: value,
		Ends:  [2]types.Coords{g.Nodes[a].Coords, g.Nodes[b].Coords},
		Nodes: [2]types.NodeID{a, b},
	})
	first, second := &g.Nodes[a], &g.Nodes[b]
	first.Resistors = append(first.Resistors, id)
	first.Neighbors = append(first.Neighbors, b)
	first.AddInverseResistance(value)
	second.Resistors = append(second.Resistors, id)
	second.Neighbors = append(second.Neighbors, a)
	second.AddInverseResistance(value)
	return id
}

// AddCurrentSource 添加电流源并连接到节点
func (g *Graph) AddCurrentSource(name string, node types.NodeID, value float64) types.CurrentSourceID {
	id := len(g.CurrentSources)
	g.CurrentSources = append(g.CurrentSources, types.CurrentSource{
		Name:   name,
		Value:  value,
		Coords: g.Nodes[node].Coords,
		Node:   types.NoneID,
	})
	g.AttachCurrentSource(id, node)
	return id
}

// AddVoltageSource 添加电压源并连接到节点
func (g *Graph) AddVoltageSource(name string, node types.NodeID, value float64) types.VoltageSourceID {
	id := len(g.VoltageSources)
	g.VoltageSources = append(g.VoltageSources, types.VoltageSource{
		Name:   name,
		Value:  value,
		Coords: g.Nodes[node].Coords,
		Node:   node,
	})
	n := &g.Nodes[node]
	n.VoltageSources = append(n.VoltageSources, id)
	return id
}

// AttachCurrentSource 将电流源连接到节点,同时更新电流源坐标
func (g *Graph) AttachCurrentSource(cs types.CurrentSourceID, node types.NodeID) {
	src, n := &g.CurrentSources[cs], &g.Nodes[node]
	src.Node = node
	src.Coords = n.Coords
	n.CurrentSources = append(n.CurrentSources, cs)
}

// DetachCurrentSource 断开电流源与节点的连接,返回原节点
func (g *Graph) DetachCurrentSource(cs types.CurrentSourceID) types.NodeID {
	src := &g.CurrentSources[cs]
	node := src.Node
	if node == types.NoneID {
		return node
	}
	n := &g.Nodes[node]
	if i := slices.Index(n.CurrentSources, cs); i >= 0 {
		n.CurrentSources = slices.Delete(n.CurrentSources, i, i+1)
	}
	src.Node = types.NoneID
	return node
}

// Counts 元件数量
type Counts struct {
	Nodes          int `yaml:"nodes"`
	Resistors      int `yaml:"resistors"`
	CurrentSources int `yaml:"currentSources"`
	VoltageSources int `yaml:"voltageSources"`
}

// Counts 统计元件数量
func (g *Graph) Counts() Counts {
	return Counts{
		Nodes:          len(g.Nodes),
		Resistors:      len(g.Resistors),
		CurrentSources: len(g.CurrentSources),
		VoltageSources: len(g.VoltageSources),
	}
}

// IsEmpty 没有任何元件
func (g *Graph) IsEmpty() bool { return len(g.Nodes) == 0 }

// MarkMutated 标记图已被修改
func (g *Graph) MarkMutated() { g.State = StateMutated }

// MarkSolved 标记图已求解
func (g *Graph) MarkSolved() { g.State = StateSolved }

// Close 断开全部元件连接并释放
func (g *Graph) Close() {
	for i := range g.Nodes {
		g.Nodes[i].Disconnect()
	}
	for i := range g.Resistors {
		g.Resistors[i].Disconnect()
	}
	for i := range g.CurrentSources {
		g.CurrentSources[i].Disconnect()
	}
	for i := range g.VoltageSources {
		g.VoltageSources[i].Disconnect()
	}
	g.Nodes = nil
	g.Resistors = nil
	g.CurrentSources = nil
	g.VoltageSources = nil
	g.State = StateEmpty
	g.Baseline = false
}
