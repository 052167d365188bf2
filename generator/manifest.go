package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"pdnfake/graph"
	"pdnfake/stats"
)

// ManifestName 清单文件名
const ManifestName = "manifest.yaml"

// Fake 一个伪造网表的生成结果
type Fake struct {
	Index      int           `yaml:"index"`      // 序号
	Mode       int           `yaml:"mode"`       // 请求的修改模式
	Applied    int           `yaml:"applied"`    // 最后一次实际执行的修改模式
	Dir        string        `yaml:"dir"`        // 输出目录
	Target     float64       `yaml:"target"`     // 目标平均差异
	Difference float64       `yaml:"difference"` // 实际平均差异
	Drop       stats.Drop    `yaml:"drop"`       // 压降统计
	Attempts   int           `yaml:"attempts"`   // 修改次数
	Step       float64       `yaml:"step"`       // 最后一次修改幅度
	Iterations int           `yaml:"iterations"` // 累计求解迭代次数
	Converged  bool          `yaml:"converged"`  // 最后一次求解是否收敛
	Exhausted  bool          `yaml:"exhausted"`  // 达到最大修改次数仍未满足目标
	Digest     string        `yaml:"digest"`     // 网表 BLAKE3 摘要
	Duration   time.Duration `yaml:"duration"`   // 生成耗时
}

// Summary 一次运行的汇总
type Summary struct {
	Fakes      int           `yaml:"fakes"`      // 伪造数量
	Drop       stats.Drop    `yaml:"drop"`       // 压降统计平均值
	Difference float64       `yaml:"difference"` // 平均差异的平均值
	Total      time.Duration `yaml:"total"`      // 总耗时
	Average    time.Duration `yaml:"average"`    // 平均耗时
}

// Manifest 输出目录清单
type Manifest struct {
	Source      string       `yaml:"source"`         // 原始网表
	Fingerprint string       `yaml:"fingerprint"`    // 原始网表摘要
	Run         string       `yaml:"run,omitempty"`  // 记录编号
	Mode        int          `yaml:"mode"`           // 修改模式
	Seed        *uint64      `yaml:"seed,omitempty"` // 随机种子
	Counts      graph.Counts `yaml:"counts"`         // 原始网表元件数量
	Baseline    stats.Drop   `yaml:"baseline"`       // 原始网表压降统计
	Fakes       []Fake       `yaml:"fakes"`          // 伪造网表
	Summary     Summary      `yaml:"summary"`        // 汇总
}

// Write 写入清单
func (m *Manifest) Write(dir string) (err error) {
	filename := filepath.Join(dir, ManifestName)
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err = encoder.Encode(m); err != nil {
		return fmt.Errorf("写入清单 %s 失败: %w", filename, err)
	}
	return encoder.Close()
}

// ReadManifest 读取清单
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, err
	}
	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("解析清单失败: %w", err)
	}
	return m, nil
}
