package types

// ElementType 元件类型
type ElementType uint

// 电路元件类型常量定义
const (
	TypeUnknown       ElementType = iota // 未知类型
	TypeResistor                         // 电阻
	TypeCurrentSource                    // 电流源
	TypeVoltageSource                    // 电压源
)

// slementTypeString 元件映射
var slementTypeString = map[ElementType]string{
	TypeUnknown:       "Unknown",
	TypeResistor:      "Resistor",
	TypeCurrentSource: "CurrentSource",
	TypeVoltageSource: "VoltageSource",
}

// String 返回元件类型的字符串表示
func (t ElementType) String() string {
	if name, ok := slementTypeString[t]; ok {
		return name
	}
	return "Unknown"
}

// GetNameType 通过元件名称首字母获取类型
func GetNameType(name string) ElementType {
	if name == "" {
		return TypeUnknown
	}
	switch name[0] {
	case 'R', 'r':
		return TypeResistor
	case 'I', 'i':
		return TypeCurrentSource
	case 'V', 'v':
		return TypeVoltageSource
	}
	return TypeUnknown
}
