package types

import "fmt"

// NodeID 节点索引
type NodeID = int

// ResistorID 电阻索引
type ResistorID = int

// CurrentSourceID 电流源索引
type CurrentSourceID = int

// VoltageSourceID 电压源索引
type VoltageSourceID = int

// Coords 节点物理坐标
type Coords struct {
	Layer uint32 // 金属层
	X     uint32 // 横坐标
	Y     uint32 // 纵坐标
}

// String 按网表格式输出节点名称
func (c Coords) String() string {
	return fmt.Sprintf("n%d_m%d_%d_%d", NetlistNetName, c.Layer, c.X, c.Y)
}
