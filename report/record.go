package report

// Attempt 一次修改并求解的记录
type Attempt struct {
	Fake       int     `yaml:"fake"`       // 伪造网表序号
	Step       float64 `yaml:"step"`       // 修改幅度
	Difference float64 `yaml:"difference"` // 与原始电压的平均差异
	Iterations int     `yaml:"iterations"` // 求解迭代次数
	MeanDrop   float64 `yaml:"meanDrop"`   // 平均压降
}

// Record 记录生成过程
type Record struct {
	Attempts []Attempt // 全部尝试
}

// Add 添加一次尝试
func (r *Record) Add(a Attempt) { r.Attempts = append(r.Attempts, a) }

// Fake 指定伪造网表的全部尝试
func (r *Record) Fake(i int) []Attempt {
	var list []Attempt
	for _, a := range r.Attempts {
		if a.Fake == i {
			list = append(list, a)
		}
	}
	return list
}

// Reset 清空记录
func (r *Record) Reset() { r.Attempts = r.Attempts[:0] }
