package types

// 默认连接常量定义
const (
	NoneID         = -1     // 未连接标记
	GroundName     = "0"    // 地节点名称
	CurrentLayer   = 1      // 允许连接电流源的金属层
	VoltageLayer   = 9      // 允许连接电压源的金属层
	MovedSuffix    = "_new" // 位置反转后电流源名称后缀
	NetlistNetName = 1      // 导出网表时使用的网络编号
)

// 默认参数常量定义
var (
	Precision     = 1e-8   // 收敛精度
	MaxIterations = 100000 // 最大迭代次数
	DirectLimit   = 4096   // 直接求解允许的最大节点数量
)
