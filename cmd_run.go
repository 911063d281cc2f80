package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ByLCY/lasercal/config"
	"github.com/ByLCY/lasercal/dsl"
	"github.com/ByLCY/lasercal/layout"
	"github.com/ByLCY/lasercal/renderer"
	canvasrenderer "github.com/ByLCY/lasercal/renderer/canvas"
	gcoderenderer "github.com/ByLCY/lasercal/renderer/gcode"
)

var (
	runOut      string
	runPreview  string
	runDebug    string
	runDebugOps bool
	runData     string
	runWatch    bool
)

var runCmd = &cobra.Command{
	Use:   "run <job.lasercal>",
	Short: "根据任务文件生成 G-code",
	Long: `解析 .lasercal 任务文件，计算各段落的刀路并输出 G-code。

示例:
  lasercal run examples/birch.lasercal --out birch.gcode --preview birch.svg
  lasercal run job.lasercal --data '{"batch": 7}'`,
	Args: cobra.ExactArgs(1),
	RunE: runJob,
}

func init() {
	runCmd.Flags().StringVarP(&runOut, "out", "o", "-", "G-code 输出路径，- 表示标准输出")
	runCmd.Flags().StringVar(&runPreview, "preview", "", "预览图输出路径，格式由扩展名决定（.pdf/.svg/.png）")
	runCmd.Flags().StringVar(&runDebug, "debug", "", "布局调试 JSON 输出路径")
	runCmd.Flags().BoolVar(&runDebugOps, "debug-ops", false, "在调试 JSON 中包含每条刀路指令")
	runCmd.Flags().StringVar(&runData, "data", "", "绑定到任务文字的 JSON 数据")
	runCmd.Flags().BoolVarP(&runWatch, "watch", "w", false, "任务文件保存后自动重新生成")
}

// runOptions 描述一次 run 的输出目标。
type runOptions struct {
	Out      string
	Preview  string
	Debug    string
	DebugOps bool
	Data     any
}

func runJob(cmd *cobra.Command, args []string) error {
	var data any
	if runData != "" {
		if err := json.Unmarshal([]byte(runData), &data); err != nil {
			return fmt.Errorf("解析 data JSON 失败: %w", err)
		}
	}
	opts := runOptions{
		Out:      runOut,
		Preview:  runPreview,
		Debug:    runDebug,
		DebugOps: runDebugOps,
		Data:     data,
	}
	rebuild := func() error { return run(args[0], opts, profile, logger, cmd.OutOrStdout()) }
	if !runWatch {
		return rebuild()
	}
	if err := rebuild(); err != nil {
		logger.Error("生成失败，等待任务文件修改", zap.Error(err))
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchJob(ctx, args[0], defaultDebounce, rebuild, logger)
}

// run 串联解析、布局与渲染。
func run(inputPath string, opts runOptions, prof config.Profile, log *zap.Logger, stdout io.Writer) error {
	if log == nil {
		log = zap.NewNop()
	}
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("无法打开任务文件 %s: %w", inputPath, err)
	}
	defer file.Close()

	doc, err := dsl.Parse(inputPath, file)
	if err != nil {
		return fmt.Errorf("解析任务失败: %w", err)
	}

	result, err := layout.Build(doc, opts.Data, layout.BuildOptions{
		Machine:  prof.Machine(),
		Overscan: &prof.Overscan,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("布局计算失败: %w", err)
	}

	if opts.Debug != "" {
		if err := writeDebug(result, opts.Debug, opts.DebugOps); err != nil {
			return err
		}
	}

	// G-code 与预览互不依赖，并行渲染
	var g errgroup.Group
	if opts.Preview != "" {
		format, err := canvasrenderer.ParseFormat(filepath.Ext(opts.Preview))
		if err != nil {
			return err
		}
		preview := canvasrenderer.NewRenderer(canvasrenderer.Options{Format: format, ShowTravel: true, ShowBounds: true})
		g.Go(func() error {
			if err := renderTo(preview, result, opts.Preview, stdout); err != nil {
				return fmt.Errorf("渲染预览失败: %w", err)
			}
			log.Info("已生成预览", zap.String("path", opts.Preview))
			return nil
		})
	}
	g.Go(func() error {
		if err := renderTo(gcodeRenderer(prof), result, opts.Out, stdout); err != nil {
			return fmt.Errorf("渲染 G-code 失败: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("已生成 G-code",
		zap.String("job", result.Name),
		zap.Int("blocks", len(result.Blocks)),
		zap.String("out", opts.Out),
	)
	return nil
}

func gcodeRenderer(prof config.Profile) *gcoderenderer.Renderer {
	return gcoderenderer.NewRenderer(gcoderenderer.Options{
		Precision: &prof.Precision,
		Preamble:  prof.Preamble,
		Postamble: prof.Postamble,
	})
}

// renderTo 渲染结果并写入 path；path 为 "-" 时写到 stdout。
func renderTo(r renderer.Renderer, result *layout.Result, path string, stdout io.Writer) error {
	data, err := r.Render(result)
	if err != nil {
		return err
	}
	return writeOutput(path, data, stdout)
}

func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入文件 %s 失败: %w", path, err)
	}
	return nil
}

func writeDebug(result *layout.Result, debugPath string, ops bool) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath, layout.DebugOptions{Ops: ops}); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
