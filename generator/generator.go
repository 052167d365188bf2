// Package generator 按目标压降差异批量生成伪造网表。
//
// 第 i 个伪造网表的目标差异为 |irDropDiff/numOfFakes × 0.9 × (i+1)|。
// 每次尝试先修改工作图再重新求解,未达到目标时缩小修改幅度继续尝试;
// 修改在伪造网表之间累积,不会重置到原始网表。
package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pdnfake"
	"pdnfake/config"
	"pdnfake/ledger"
	"pdnfake/report"
	"pdnfake/stats"
)

// 修改幅度参数
const (
	DefaultStep  = 0.01  // 初始修改幅度占差异步长的比例
	StepDecay    = 0.001 // 每次未达到目标后幅度的衰减比例
	BottomBorder = 0.9   // 目标差异下限比例
)

// 输出文件名
const (
	NetlistName = "netlist.sp"
	IRDropName  = "netlist.csv"
	ChartsName  = "irdrop.html"
	PlotName    = "irdrop.png"
	zstdExt     = ".zst"
)

// ErrAttemptsExhausted 达到最大修改次数仍未满足目标差异
var ErrAttemptsExhausted = errors.New("达到最大修改次数")

// Generator 伪造网表生成器
type Generator struct {
	Config config.Config  // 配置
	Logger *log.Logger    // 进度日志
	Record report.Record  // 当前网表的尝试记录
	ledger *ledger.Ledger // 运行记录,未配置时为 nil
}

// New 创建生成器,logger 为 nil 时使用标准日志
func New(cfg config.Config, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{Config: cfg, Logger: logger}
}

// Discard 不输出日志
func Discard() *log.Logger { return log.New(io.Discard, "", 0) }

// Open 打开运行记录数据库
func (gen *Generator) Open() error {
	if gen.Config.Ledger == "" || gen.ledger != nil {
		return nil
	}
	l, err := ledger.Open(gen.Config.Ledger)
	if err != nil {
		return err
	}
	gen.ledger = l
	return nil
}

// Close 关闭运行记录数据库
func (gen *Generator) Close() error {
	if gen.ledger == nil {
		return nil
	}
	err := gen.ledger.Close()
	gen.ledger = nil
	return err
}

// FakeDir 第 i 个伪造网表的输出目录
func FakeDir(destination string, mode, i int) string {
	return filepath.Join(destination, fmt.Sprintf("netlist-fake-mode-%d-%d", mode, i))
}

// output 输出文件名,压缩时追加 .zst
func (gen *Generator) output(name string) string {
	if gen.Config.Compress {
		return name + zstdExt
	}
	return name
}

// options 由配置生成 PDN 选项
func (gen *Generator) options() []pdnfake.Option {
	opts := []pdnfake.Option{
		pdnfake.WithPrecision(gen.Config.IRDropPrecision),
		pdnfake.WithMaxIterations(gen.Config.MaxIterations),
		pdnfake.WithLogger(gen.Logger),
	}
	if gen.Config.Seed != nil {
		opts = append(opts, pdnfake.WithSeed(*gen.Config.Seed))
	}
	return opts
}

// RunAll 依次处理 source 匹配的全部网表。
// 只有一个网表时直接输出到 destination,否则输出到 destination/<网表名>。
func (gen *Generator) RunAll(ctx context.Context) ([]Summary, error) {
	if err := gen.Config.Validate(); err != nil {
		return nil, err
	}
	sources, err := gen.Config.Sources()
	if err != nil {
		return nil, err
	}
	if err := gen.Open(); err != nil {
		return nil, err
	}
	defer gen.Close()
	summaries := make([]Summary, 0, len(sources))
	for _, source := range sources {
		destination := gen.Config.Destination
		if len(sources) > 1 {
			base := filepath.Base(source)
			base = strings.TrimSuffix(base, zstdExt)
			base = strings.TrimSuffix(base, filepath.Ext(base))
			destination = filepath.Join(destination, base)
		}
		pdn := pdnfake.New(gen.options()...)
		if err := pdn.Load(source); err != nil {
			return summaries, err
		}
		summary, err := gen.Run(ctx, pdn, destination)
		pdn.Close()
		summaries = append(summaries, summary)
		if err != nil {
			return summaries, err
		}
	}
	return summaries, nil
}

// Run 求解原始网表后依次生成 numOfFakes 个伪造网表
func (gen *Generator) Run(ctx context.Context, pdn *pdnfake.PDN, destination string) (Summary, error) {
	cfg := &gen.Config
	if pdn.Graph() == nil {
		return Summary{}, pdnfake.ErrEmpty
	}
	gen.Record.Reset()
	if err := os.MkdirAll(destination, 0755); err != nil {
		return Summary{}, fmt.Errorf("创建输出目录失败: %w", err)
	}
	manifest := &Manifest{
		Source:      pdn.Source(),
		Fingerprint: pdn.Fingerprint(),
		Mode:        cfg.Mode,
		Seed:        cfg.Seed,
		Counts:      pdn.Graph().Counts(),
	}
	if d, err := pdn.Diagnose(); err == nil && !d.Healthy() {
		gen.Logger.Printf("网表存在 %d 个悬空节点, %d 个孤岛", len(d.Floating), len(d.Islands))
	}

	baseline, err := pdn.SolveDCAndSaveRealValues()
	if err != nil {
		return Summary{}, err
	}
	if !baseline.Converged {
		gen.Logger.Printf("原始网表求解 %d 次迭代后未收敛", baseline.Iterations)
	}
	manifest.Baseline = pdn.IRDrop()
	gen.Logger.Printf("原始网表: 迭代 %d -- 最大: %g -- 最小: %g -- 平均: %g",
		baseline.Iterations, manifest.Baseline.Max, manifest.Baseline.Min, manifest.Baseline.Mean)

	var run *ledger.Run
	if gen.ledger != nil {
		run = &ledger.Run{
			Source:      pdn.Source(),
			Fingerprint: manifest.Fingerprint,
			Mode:        cfg.Mode,
			Seed:        cfg.Seed,
			Fakes:       cfg.NumOfFakes,
			IRDropDiff:  cfg.IRDropDiff,
		}
		if err := gen.ledger.StartRun(run); err != nil {
			return Summary{}, err
		}
		manifest.Run = run.ID
	}

	var sum stats.Summary
	var total time.Duration
	diffStep := cfg.IRDropDiff / float64(cfg.NumOfFakes)
	for i := 0; i < cfg.NumOfFakes; i++ {
		start := time.Now()
		fake, err := gen.generate(ctx, pdn, i, diffStep)
		if err == nil {
			fake.Dir = FakeDir(destination, cfg.Mode, i)
			err = gen.write(pdn, &fake)
		}
		if err != nil {
			manifest.Summary = summarize(sum, total)
			return manifest.Summary, errors.Join(err, manifest.Write(destination))
		}
		fake.Duration = time.Since(start)
		total += fake.Duration
		sum.Add(fake.Drop, fake.Difference)
		manifest.Fakes = append(manifest.Fakes, fake)
		manifest.Summary = summarize(sum, total)
		if err := manifest.Write(destination); err != nil {
			return manifest.Summary, err
		}
		if run != nil {
			gen.duplicates(fake)
			err := gen.ledger.RecordFake(ledger.Fake{
				Run:        run.ID,
				Index:      i,
				Mode:       fake.Mode,
				Applied:    fake.Applied,
				Difference: fake.Difference,
				MaxDrop:    fake.Drop.Max,
				MinDrop:    fake.Drop.Min,
				MeanDrop:   fake.Drop.Mean,
				Attempts:   fake.Attempts,
				Iterations: fake.Iterations,
				Digest:     fake.Digest,
				Path:       fake.Dir,
			})
			if err != nil {
				return manifest.Summary, err
			}
		}
	}

	s := manifest.Summary
	gen.Logger.Printf("IR 压降统计: 最大 %.9f -- 最小 %.9f -- 平均 %.9f -- 平均差异 %.9f%%",
		s.Drop.Max, s.Drop.Min, s.Drop.Mean, s.Difference*100)
	gen.Logger.Printf("总耗时 %v, 平均耗时 %v", s.Total, s.Average)
	return s, nil
}

// generate 修改并求解直到平均差异达到第 i 个目标
func (gen *Generator) generate(ctx context.Context, pdn *pdnfake.PDN, i int, diffStep float64) (Fake, error) {
	cfg := &gen.Config
	fake := Fake{
		Index:  i,
		Mode:   cfg.Mode,
		Target: math.Abs(diffStep * BottomBorder * float64(i+1)),
		Step:   DefaultStep * diffStep,
	}
	gen.Logger.Printf("生成: netlist-fake-%d, 目标差异 %g", i, fake.Target)
	for {
		if err := ctx.Err(); err != nil {
			return fake, err
		}
		change, err := pdn.Mutate(cfg.Strategy(), fake.Step)
		if err != nil {
			return fake, err
		}
		result, err := pdn.SolveDC()
		if err != nil {
			return fake, err
		}
		if change.Empty() {
			gen.Logger.Printf("第 %d 次修改没有改变网表: %v", fake.Attempts+1, change)
		}
		fake.Attempts++
		fake.Applied = int(change.Applied)
		fake.Iterations += result.Iterations
		fake.Converged = result.Converged
		fake.Difference = pdn.Compare()
		fake.Drop = pdn.IRDrop()
		gen.Record.Add(report.Attempt{
			Fake:       i,
			Step:       fake.Step,
			Difference: fake.Difference,
			Iterations: result.Iterations,
			MeanDrop:   fake.Drop.Mean,
		})
		gen.Logger.Printf("步骤: %d -- 总迭代: %d -- 压降差异: %g%% -- 最大: %g -- 最小: %g -- 平均: %g",
			fake.Attempts, fake.Iterations, fake.Difference*100, fake.Drop.Max, fake.Drop.Min, fake.Drop.Mean)
		if !result.Converged {
			gen.Logger.Printf("第 %d 次求解 %d 次迭代后未收敛", fake.Attempts, result.Iterations)
		}
		if fake.Difference >= fake.Target {
			return fake, nil
		}
		if fake.Attempts >= cfg.MaxAttempts {
			fake.Exhausted = true
			gen.Logger.Printf("netlist-fake-%d: %v (%d), 使用当前结果", i, ErrAttemptsExhausted, cfg.MaxAttempts)
			return fake, nil
		}
		fake.Step -= fake.Step * StepDecay
	}
}

// write 输出网表、压降报告和图表
func (gen *Generator) write(pdn *pdnfake.PDN, fake *Fake) error {
	if err := os.MkdirAll(fake.Dir, 0755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := pdn.WriteNetlist(filepath.Join(fake.Dir, gen.output(NetlistName))); err != nil {
		return err
	}
	if err := pdn.WriteIRDrop(filepath.Join(fake.Dir, gen.output(IRDropName))); err != nil {
		return err
	}
	fake.Digest = pdn.Fingerprint()
	if gen.Config.Charts {
		c := report.NewCharts(fmt.Sprintf("netlist-fake-%d", fake.Index))
		c.TileSize = gen.Config.TileSize
		c.Attempts = gen.Record.Fake(fake.Index)
		if err := c.WriteHTML(filepath.Join(fake.Dir, ChartsName), pdn.Graph()); err != nil {
			return err
		}
	}
	if gen.Config.Plot {
		err := report.SaveHeatMap(filepath.Join(fake.Dir, PlotName), pdn.Graph(), gen.Config.TileSize)
		if errors.Is(err, report.ErrNoTiles) {
			gen.Logger.Printf("netlist-fake-%d: %v, 跳过热力图", fake.Index, err)
		} else if err != nil {
			return err
		}
	}
	return nil
}

// duplicates 记录中已有相同摘要的伪造网表时输出提示
func (gen *Generator) duplicates(fake Fake) {
	same, err := gen.ledger.FindDigest(fake.Digest)
	if err != nil {
		gen.Logger.Printf("查询网表摘要失败: %v", err)
		return
	}
	for _, f := range same {
		source := f.Run
		if run, err := gen.ledger.GetRun(f.Run); err == nil {
			source = run.Source
		}
		gen.Logger.Printf("netlist-fake-%d 与 %s 的 netlist-fake-%d 相同", fake.Index, source, f.Index)
	}
}

// summarize 汇总统计
func summarize(sum stats.Summary, total time.Duration) Summary {
	drop, diff := sum.Mean()
	s := Summary{Fakes: sum.Count, Drop: drop, Difference: diff, Total: total}
	if sum.Count > 0 {
		s.Average = total / time.Duration(sum.Count)
	}
	return s
}
