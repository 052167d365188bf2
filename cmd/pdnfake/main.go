package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"pdnfake"
	"pdnfake/config"
	"pdnfake/export"
	"pdnfake/generator"
	"pdnfake/layout"
	"pdnfake/solver"
)

// Version 版本号
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:           "pdnfake",
	Short:         "电源网络伪造网表生成器",
	Long:          `pdnfake 读取电源网络 SPICE 网表,求解直流 IR 压降,并生成压降统计接近原始网络的伪造网表。`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "生成伪造网表",
	Long: `按修改模式生成 numOfFakes 个伪造网表:
  1 - 将原始电流源移动到随机节点
  2 - 在随机节点添加新的电流源
  3 - 按比例放大电流源`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

var solveCmd = &cobra.Command{
	Use:   "solve <netlist>",
	Short: "求解网表并输出 IR 压降报告",
	Args:  cobra.ExactArgs(1),
	RunE:  runSolve,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <netlist>",
	Short: "比较松弛迭代与直接求解的结果",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本号",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "pdnfake", Version)
	},
}

var (
	configFile       string
	source           string
	destination      string
	mode             int
	irDropPrecision  float64
	maxIterations    int
	irDropDiff       float64
	numOfFakes       int
	seed             uint64
	maxAttempts      int
	compress         bool
	charts           bool
	plot             bool
	tileSize         float64
	ledgerFile       string
	quiet            bool
	outputFile       string
	tolerance        float64
	solvePrecision   float64
	solveIterations  int
	verifyPrecision  float64
	verifyIterations int
)

func init() {
	defaults := config.Default()
	flags := generateCmd.Flags()
	flags.StringVar(&configFile, "config", "", "YAML 配置文件")
	flags.StringVarP(&source, "source", "s", defaults.Source, "原始网表路径,支持 ** 通配符")
	flags.StringVarP(&destination, "destination", "d", defaults.Destination, "输出目录")
	flags.IntVarP(&mode, "mode", "m", defaults.Mode, "修改模式: 1 移动电流源, 2 添加电流源, 3 放大电流源")
	flags.Float64Var(&irDropPrecision, "irDropPrecision", defaults.IRDropPrecision, "IR 压降求解精度")
	flags.IntVar(&maxIterations, "maxIterations", defaults.MaxIterations, "IR 压降求解最大迭代次数")
	flags.Float64Var(&irDropDiff, "irDropDiff", defaults.IRDropDiff, "伪造网表与原始网表的最大平均差异")
	flags.IntVar(&numOfFakes, "numOfFakes", defaults.NumOfFakes, "伪造网表数量")
	flags.Uint64Var(&seed, "seed", 0, "随机种子,未指定时每次运行不同")
	flags.IntVar(&maxAttempts, "maxAttempts", defaults.MaxAttempts, "每个伪造网表的最大修改次数")
	flags.BoolVar(&compress, "compress", false, "输出 zstd 压缩文件")
	flags.BoolVar(&charts, "charts", false, "输出 HTML 压降图表")
	flags.BoolVar(&plot, "plot", false, "输出 PNG 压降热力图")
	flags.Float64Var(&tileSize, "tileSize", defaults.TileSize, "图表网格边长")
	flags.StringVar(&ledgerFile, "ledger", "", "SQLite 运行记录文件")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "不输出进度日志")

	solveCmd.Flags().StringVarP(&outputFile, "output", "o", "", "IR 压降报告文件,默认输出到标准输出")
	solveCmd.Flags().Float64Var(&solvePrecision, "irDropPrecision", defaults.IRDropPrecision, "IR 压降求解精度")
	solveCmd.Flags().IntVar(&solveIterations, "maxIterations", defaults.MaxIterations, "IR 压降求解最大迭代次数")

	verifyCmd.Flags().Float64Var(&tolerance, "tolerance", 1e-6, "允许的最大电压误差")
	verifyCmd.Flags().Float64Var(&verifyPrecision, "irDropPrecision", 1e-12, "IR 压降求解精度")
	verifyCmd.Flags().IntVar(&verifyIterations, "maxIterations", defaults.MaxIterations, "IR 压降求解最大迭代次数")

	rootCmd.AddCommand(generateCmd, solveCmd, verifyCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// logger 进度日志
func logger(cmd *cobra.Command) *log.Logger {
	if quiet {
		return generator.Discard()
	}
	return log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
}

// buildConfig 先读取配置文件,再用命令行中显式设置的参数覆盖
func buildConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return cfg, err
		}
	}
	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("source", func() { cfg.Source = source })
	set("destination", func() { cfg.Destination = destination })
	set("mode", func() { cfg.Mode = mode })
	set("irDropPrecision", func() { cfg.IRDropPrecision = irDropPrecision })
	set("maxIterations", func() { cfg.MaxIterations = maxIterations })
	set("irDropDiff", func() { cfg.IRDropDiff = irDropDiff })
	set("numOfFakes", func() { cfg.NumOfFakes = numOfFakes })
	set("seed", func() { v := seed; cfg.Seed = &v })
	set("maxAttempts", func() { cfg.MaxAttempts = maxAttempts })
	set("compress", func() { cfg.Compress = compress })
	set("charts", func() { cfg.Charts = charts })
	set("plot", func() { cfg.Plot = plot })
	set("tileSize", func() { cfg.TileSize = tileSize })
	set("ledger", func() { cfg.Ledger = ledgerFile })
	return cfg, cfg.Validate()
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	gen := generator.New(cfg, logger(cmd))
	summaries, err := gen.RunAll(ctx)
	if err != nil {
		return err
	}
	for _, s := range summaries {
		gen.Logger.Printf("完成 %d 个伪造网表, 平均差异 %.4f%%", s.Fakes, s.Difference*100)
	}
	return nil
}

// loadAndSolve 加载网表并求解原始电压
func loadAndSolve(cmd *cobra.Command, filename string, precision float64, iterations int) (*pdnfake.PDN, solver.Result, error) {
	pdn := pdnfake.New(
		pdnfake.WithPrecision(precision),
		pdnfake.WithMaxIterations(iterations),
		pdnfake.WithLogger(logger(cmd)),
	)
	if err := pdn.Load(filename); err != nil {
		return nil, solver.Result{}, err
	}
	if d, err := pdn.Diagnose(); err == nil && !d.Healthy() {
		logger(cmd).Printf("网表存在 %d 个悬空节点, %d 个孤岛", len(d.Floating), len(d.Islands))
	}
	result, err := pdn.SolveDCAndSaveRealValues()
	if err != nil {
		pdn.Close()
		return nil, result, err
	}
	if !result.Converged {
		logger(cmd).Printf("求解 %d 次迭代后未收敛", result.Iterations)
	}
	return pdn, result, nil
}

func runSolve(cmd *cobra.Command, args []string) error {
	pdn, result, err := loadAndSolve(cmd, args[0], solvePrecision, solveIterations)
	if err != nil {
		return err
	}
	defer pdn.Close()
	drop := pdn.IRDrop()
	logger(cmd).Printf("迭代 %d -- 最大: %g -- 最小: %g -- 平均: %g", result.Iterations, drop.Max, drop.Min, drop.Mean)
	extent := layout.Extent(pdn.Graph())
	logger(cmd).Printf("坐标范围: (%g, %g) - (%g, %g)", extent.Min[0], extent.Min[1], extent.Max[0], extent.Max[1])
	if outputFile != "" {
		return pdn.WriteIRDrop(outputFile)
	}
	return export.WriteIRDrop(cmd.OutOrStdout(), pdn.Graph())
}

func runVerify(cmd *cobra.Command, args []string) error {
	pdn, result, err := loadAndSolve(cmd, args[0], verifyPrecision, verifyIterations)
	if err != nil {
		return err
	}
	defer pdn.Close()
	g := pdn.Graph()
	if err := solver.Direct(g); err != nil {
		return err
	}
	worst, name := 0.0, ""
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if diff := math.Abs(n.Value - n.RealValue); diff > worst {
			worst, name = diff, n.Name
		}
	}
	report(cmd.OutOrStdout(), result, worst, name)
	if worst > tolerance {
		return fmt.Errorf("最大误差 %g 超过允许值 %g (节点 %s)", worst, tolerance, name)
	}
	return nil
}

// report 输出校验结果
func report(w io.Writer, result solver.Result, worst float64, name string) {
	fmt.Fprintf(w, "迭代次数: %d\n收敛: %v\n最大误差: %g", result.Iterations, result.Converged, worst)
	if name != "" {
		fmt.Fprintf(w, " (%s)", name)
	}
	fmt.Fprintln(w)
}
