package types

// Node 电源网络节点
type Node struct {
	Name              string            // 节点名称
	Coords            Coords            // 物理坐标
	Value             float64           // 当前求解电压
	RealValue         float64           // 原始网络电压
	IsVoltageNode     bool              // 电压源节点
	CanConnectVoltage bool              // 允许连接电压源
	CanConnectCurrent bool              // 允许连接电流源
	IsSynthetic       bool              // 电流源已被伪造
	Neighbors         []NodeID          // 相邻节点,与 Resistors 下标一一对应
	Resistors         []ResistorID      // 连接的电阻
	CurrentSources    []CurrentSourceID // 连接的电流源
	VoltageSources    []VoltageSourceID // 连接的电压源
	InverseResistance float64           // 电导之和
	Current           float64           // 注入电流之和
}

// NewNode 创建节点
func NewNode(name string, coords Coords) Node {
	return Node{Name: name, Coords: coords}
}

// AddInverseResistance 累加电阻倒数
func (node *Node) AddInverseResistance(resistance float64) {
	node.InverseResistance += 1.0 / resistance
}

// IsFloating 没有任何电阻连接
func (node *Node) IsFloating() bool { return node.InverseResistance == 0 }

// IsCandidate 可以放置伪造电流源
func (node *Node) IsCandidate() bool { return node.CanConnectCurrent && !node.IsSynthetic }

// Disconnect 断开所有连接
func (node *Node) Disconnect() {
	node.Neighbors = nil
	node.Resistors = nil
	node.CurrentSources = nil
	node.VoltageSources = nil
}

// Resistor 电阻
type Resistor struct {
	Name  string    // 元件名称
	Value float64   // 电阻值
	Ends  [2]Coords // 两端坐标
	Nodes [2]NodeID // 两端节点
}

// IsVia 两端金属层不同
func (r *Resistor) IsVia() bool { return r.Ends[0].Layer != r.Ends[1].Layer }

// Disconnect 断开所有连接
func (r *Resistor) Disconnect() { r.Nodes = [2]NodeID{NoneID, NoneID} }

// CurrentSource 电流源
type CurrentSource struct {
	Name   string  // 元件名称
	Value  float64 // 电流值
	Coords Coords  // 连接坐标
	Node   NodeID  // 连接节点
}

// Disconnect 断开所有连接
func (cs *CurrentSource) Disconnect() { cs.Node = NoneID }

// VoltageSource 电压源
type VoltageSource struct {
	Name   string  // 元件名称
	Value  float64 // 电压值
	Coords Coords  // 连接坐标
	Node   NodeID  // 连接节点
}

// Disconnect 断开所有连接
func (vs *VoltageSource) Disconnect() { vs.Node = NoneID }
