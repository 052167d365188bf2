// Package config 生成器配置:默认值、YAML 文件和参数检查。
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"pdnfake/perturb"
	"pdnfake/types"
)

// 默认参数
const (
	DefaultSource      = "./netlist.sp"
	DefaultDestination = "./"
	DefaultMode        = int(perturb.PositionInversion)
	DefaultNumOfFakes  = 10
	DefaultIRDropDiff  = 0.75
	DefaultMaxAttempts = 10000
	DefaultTileSize    = 50
)

// ErrNoSource 没有匹配的网表
var ErrNoSource = errors.New("没有匹配的网表文件")

// Config 生成器配置
type Config struct {
	Source          string  `yaml:"source"`          // 原始网表,可以是 ** 通配符
	Destination     string  `yaml:"destination"`     // 输出目录
	Mode            int     `yaml:"mode"`            // 修改模式 1-3
	NumOfFakes      int     `yaml:"numOfFakes"`      // 伪造数量
	MaxIterations   int     `yaml:"maxIterations"`   // 求解最大迭代次数
	IRDropDiff      float64 `yaml:"irDropDiff"`      // 目标平均差异
	IRDropPrecision float64 `yaml:"irDropPrecision"` // 求解精度
	Seed            *uint64 `yaml:"seed"`            // 随机种子
	MaxAttempts     int     `yaml:"maxAttempts"`     // 每个伪造网表的最大修改次数
	Compress        bool    `yaml:"compress"`        // 输出 zstd 压缩文件
	Charts          bool    `yaml:"charts"`          // 输出 HTML 图表
	Plot            bool    `yaml:"plot"`            // 输出 PNG 热力图
	TileSize        float64 `yaml:"tileSize"`        // 图表网格边长
	Ledger          string  `yaml:"ledger"`          // SQLite 记录文件,为空时不记录
}

// Default 默认配置
func Default() Config {
	return Config{
		Source:          DefaultSource,
		Destination:     DefaultDestination,
		Mode:            DefaultMode,
		NumOfFakes:      DefaultNumOfFakes,
		MaxIterations:   types.MaxIterations,
		IRDropDiff:      DefaultIRDropDiff,
		IRDropPrecision: types.Precision,
		MaxAttempts:     DefaultMaxAttempts,
		TileSize:        DefaultTileSize,
	}
}

// Decode 在默认配置上读取 YAML,未知字段视为错误
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("解析配置失败: %w", err)
	}
	return cfg, nil
}

// Load 读取配置文件
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("读取配置文件失败: %w", err)
	}
	cfg, err := Decode(bytes.NewReader(data))
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Strategy 修改策略
func (c *Config) Strategy() perturb.Strategy { return perturb.Strategy(c.Mode) }

// Validate 检查参数
func (c *Config) Validate() error {
	var errs []error
	if c.Source == "" {
		errs = append(errs, errors.New("source 不能为空"))
	} else if !doublestar.ValidatePathPattern(c.Source) {
		errs = append(errs, fmt.Errorf("source '%s' 不是有效的通配符", c.Source))
	}
	if c.Destination == "" {
		errs = append(errs, errors.New("destination 不能为空"))
	}
	if !c.Strategy().Valid() {
		errs = append(errs, fmt.Errorf("mode 必须为 1、2 或 3,实际为 %d", c.Mode))
	}
	if c.NumOfFakes <= 0 {
		errs = append(errs, fmt.Errorf("numOfFakes 必须大于 0,实际为 %d", c.NumOfFakes))
	}
	if c.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("maxIterations 必须大于 0,实际为 %d", c.MaxIterations))
	}
	if !(c.IRDropPrecision > 0) {
		errs = append(errs, fmt.Errorf("irDropPrecision 必须大于 0,实际为 %g", c.IRDropPrecision))
	}
	if math.IsNaN(c.IRDropDiff) || math.IsInf(c.IRDropDiff, 0) {
		errs = append(errs, fmt.Errorf("irDropDiff 必须为有限值,实际为 %g", c.IRDropDiff))
	}
	if c.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("maxAttempts 必须大于 0,实际为 %d", c.MaxAttempts))
	}
	if (c.Charts || c.Plot) && !(c.TileSize > 0) {
		errs = append(errs, fmt.Errorf("tileSize 必须大于 0,实际为 %g", c.TileSize))
	}
	return errors.Join(errs...)
}

// Sources 展开 source 通配符,结果按路径排序
func (c *Config) Sources() ([]string, error) {
	matches, err := doublestar.FilepathGlob(c.Source, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("展开 '%s' 失败: %w", c.Source, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSource, c.Source)
	}
	slices.Sort(matches)
	return matches, nil
}
