package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ByLCY/lasercal/laser"
	"github.com/ByLCY/lasercal/layout"
)

// gridFlags 是 field 与 passes 共用的网格参数。
type gridFlags struct {
	out           string
	rows          int
	columns       int
	width         string
	height        string
	padding       string
	lpi           float64
	overscan      string
	bidirectional bool
	heading       string
}

func (g *gridFlags) register(cmd *cobra.Command, bidirectional bool) {
	cmd.Flags().StringVarP(&g.out, "out", "o", "-", "G-code 输出路径，- 表示标准输出")
	cmd.Flags().IntVar(&g.rows, "rows", 0, "行数（field 默认取速度步数）")
	cmd.Flags().IntVar(&g.columns, "columns", 0, "列数（field 默认取功率步数）")
	cmd.Flags().StringVar(&g.width, "width", "100mm", "整体宽度")
	cmd.Flags().StringVar(&g.height, "height", "100mm", "整体高度（含标题行）")
	cmd.Flags().StringVar(&g.padding, "padding", "1mm", "单元格间距")
	cmd.Flags().Float64Var(&g.lpi, "lpi", 0, "光栅线密度，0 表示只描边，否则至少 50")
	cmd.Flags().StringVar(&g.overscan, "overscan", "", "光栅超程，占格宽比例（默认取配置）")
	cmd.Flags().BoolVar(&g.bidirectional, "bidirectional", bidirectional, "光栅双向扫描")
	cmd.Flags().StringVar(&g.heading, "heading", layout.HeadingAuto, "标题文字，auto 自动生成，空字符串不刻标题")
}

// size 解析宽、高、间距与超程。
func (g *gridFlags) size() (width, height, padding, overscan float64, err error) {
	if width, err = layout.ParseLength(g.width); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("--width: %w", err)
	}
	if height, err = layout.ParseLength(g.height); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("--height: %w", err)
	}
	if padding, err = layout.ParseLength(g.padding); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("--padding: %w", err)
	}
	overscan = profile.Overscan
	if g.overscan != "" {
		if overscan, err = layout.ParseFraction(g.overscan); err != nil {
			return 0, 0, 0, 0, fmt.Errorf("--overscan: %w", err)
		}
	}
	return width, height, padding, overscan, nil
}

var (
	fieldGrid     gridFlags
	fieldPower    string
	fieldVelocity string
	fieldPasses   int
)

var fieldCmd = &cobra.Command{
	Use:   "field",
	Short: "生成功率 x 速度的 LE 网格",
	Long: `按功率与速度范围生成 LE 网格：每一行一个速度，每一列一个功率。
范围写作 起:止:步数，单个值表示固定参数。

示例:
  lasercal field --power 2W:10W:5 --velocity 600:3000:4 --lpi 254`,
	Args: cobra.NoArgs,
	RunE: runField,
}

func init() {
	fieldGrid.register(fieldCmd, false)
	fieldCmd.Flags().StringVar(&fieldPower, "power", "10W", "功率范围，例如 2W:10W:5 或 50%")
	fieldCmd.Flags().StringVar(&fieldVelocity, "velocity", "1000mm/min", "速度范围，例如 600:3000:4")
	fieldCmd.Flags().IntVar(&fieldPasses, "passes", 1, "每个单元格的遍数")
}

func runField(cmd *cobra.Command, args []string) error {
	machine := profile.Machine()
	powers, err := parseRangeFlag(fieldPower, func(s string) (float64, error) {
		return layout.ParsePower(s, machine.MaxPower)
	})
	if err != nil {
		return fmt.Errorf("--power: %w", err)
	}
	velocities, err := parseRangeFlag(fieldVelocity, layout.ParseSpeed)
	if err != nil {
		return fmt.Errorf("--velocity: %w", err)
	}
	width, height, padding, overscan, err := fieldGrid.size()
	if err != nil {
		return err
	}

	les := laser.Matrix(powers, velocities, fieldPasses)
	rows, columns := fieldGrid.rows, fieldGrid.columns
	if columns == 0 {
		columns = len(powers.Values())
	}
	if rows == 0 {
		rows = (len(les) + columns - 1) / columns
	}
	field := &layout.LEField{
		LEs:           les,
		Machine:       machine,
		Rows:          rows,
		Columns:       columns,
		Width:         width,
		Height:        height,
		Padding:       padding,
		Overscan:      overscan,
		Bidirectional: fieldGrid.bidirectional,
		Heading:       fieldGrid.heading,
	}
	block, err := layout.BuildFieldBlock("field", field, fieldGrid.lpi, layout.Point{})
	if err != nil {
		return err
	}
	return writePattern("field", block, fieldGrid.out, cmd.OutOrStdout())
}

var (
	passesGrid     gridFlags
	passesPower    string
	passesVelocity string
	passesFactor   int
	passesVariance string
)

var passesCmd = &cobra.Command{
	Use:   "passes",
	Short: "生成遍数网格：每行 LEV 相同，逐列增加遍数",
	Long: `以基准 LE 为中心生成遍数网格。第 c 列（c>=1）使用 (c+1)*factor 遍并同比提高速度，
各行的 LEV 按 variance 围绕基准交替增减。

示例:
  lasercal passes --power 10W --velocity 1200 --rows 5 --columns 4 --lpi 127`,
	Args: cobra.NoArgs,
	RunE: runPasses,
}

func init() {
	passesGrid.register(passesCmd, true)
	passesCmd.Flags().StringVar(&passesPower, "power", "10W", "基准功率")
	passesCmd.Flags().StringVar(&passesVelocity, "velocity", "1000mm/min", "基准速度")
	passesCmd.Flags().IntVar(&passesFactor, "factor", 1, "遍数步进")
	passesCmd.Flags().StringVar(&passesVariance, "variance", "5%", "相邻两行的 LEV 变化比例")
}

func runPasses(cmd *cobra.Command, args []string) error {
	machine := profile.Machine()
	power, err := layout.ParsePower(passesPower, machine.MaxPower)
	if err != nil {
		return fmt.Errorf("--power: %w", err)
	}
	velocity, err := layout.ParseSpeed(passesVelocity)
	if err != nil {
		return fmt.Errorf("--velocity: %w", err)
	}
	variance, err := layout.ParseFraction(passesVariance)
	if err != nil {
		return fmt.Errorf("--variance: %w", err)
	}
	width, height, padding, overscan, err := passesGrid.size()
	if err != nil {
		return err
	}
	rows, columns := passesGrid.rows, passesGrid.columns
	if rows == 0 {
		rows = 1
	}
	if columns == 0 {
		columns = 1
	}
	field := &layout.PassesField{
		Base:          laser.New(power, velocity, 1),
		Machine:       machine,
		Rows:          rows,
		Columns:       columns,
		Width:         width,
		Height:        height,
		Padding:       padding,
		Factor:        passesFactor,
		Variance:      variance,
		Overscan:      overscan,
		Bidirectional: passesGrid.bidirectional,
		Heading:       passesGrid.heading,
	}
	block, err := layout.BuildPassesBlock("passes", field, passesGrid.lpi, layout.Point{})
	if err != nil {
		return err
	}
	return writePattern("passes", block, passesGrid.out, cmd.OutOrStdout())
}

var (
	textOut      string
	textPower    string
	textVelocity string
	textHeight   string
	textWidth    string
	textSpacing  string
)

var textCmd = &cobra.Command{
	Use:   "text <content>",
	Short: "用单线字形刻写文字",
	Long: `把文字转换为单线笔画的 G-code，可用字符: 数字、空格、逗号、减号、句点、F 与 L。

示例:
  lasercal text "L120-480" --power 5W --velocity 1500 --height 5mm`,
	Args: cobra.ExactArgs(1),
	RunE: runText,
}

func init() {
	textCmd.Flags().StringVarP(&textOut, "out", "o", "-", "G-code 输出路径，- 表示标准输出")
	textCmd.Flags().StringVar(&textPower, "power", "5W", "功率")
	textCmd.Flags().StringVar(&textVelocity, "velocity", "1000mm/min", "速度")
	textCmd.Flags().StringVar(&textHeight, "height", "10mm", "字高")
	textCmd.Flags().StringVar(&textWidth, "width", "", "字宽，默认为字高的一半")
	textCmd.Flags().StringVar(&textSpacing, "spacing", "1mm", "字符间距")
}

func runText(cmd *cobra.Command, args []string) error {
	machine := profile.Machine()
	power, err := layout.ParsePower(textPower, machine.MaxPower)
	if err != nil {
		return fmt.Errorf("--power: %w", err)
	}
	velocity, err := layout.ParseSpeed(textVelocity)
	if err != nil {
		return fmt.Errorf("--velocity: %w", err)
	}
	height, err := layout.ParseLength(textHeight)
	if err != nil {
		return fmt.Errorf("--height: %w", err)
	}
	width := height / 2
	if textWidth != "" {
		if width, err = layout.ParseLength(textWidth); err != nil {
			return fmt.Errorf("--width: %w", err)
		}
	}
	spacing, err := layout.ParseLength(textSpacing)
	if err != nil {
		return fmt.Errorf("--spacing: %w", err)
	}
	l := layout.NewLettering(laser.New(power, velocity, 1), machine, height, width, spacing)
	block, err := layout.BuildTextBlock("text", l, args[0], layout.Point{})
	if err != nil {
		return err
	}
	return writePattern("text", block, textOut, cmd.OutOrStdout())
}

var levCmd = &cobra.Command{
	Use:   "lev <power> <velocity> [passes]",
	Short: "计算 LE 的 LEV 与 S 值",
	Long: `输出一组 LE 的 LEV（J/m）以及按当前机器配置换算的 S 值。

示例:
  lasercal lev 10W 1200mm/min 2`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runLEV,
}

func runLEV(cmd *cobra.Command, args []string) error {
	le, err := parseLEArgs(args, profile.Machine())
	if err != nil {
		return err
	}
	return printLEV(cmd.OutOrStdout(), le, profile.Machine())
}

func parseLEArgs(args []string, machine laser.Machine) (laser.LE, error) {
	power, err := layout.ParsePower(args[0], machine.MaxPower)
	if err != nil {
		return laser.LE{}, fmt.Errorf("功率: %w", err)
	}
	velocity, err := layout.ParseSpeed(args[1])
	if err != nil {
		return laser.LE{}, fmt.Errorf("速度: %w", err)
	}
	passes := 1
	if len(args) > 2 {
		if passes, err = strconv.Atoi(args[2]); err != nil || passes < 1 {
			return laser.LE{}, fmt.Errorf("遍数应为正整数: %q", args[2])
		}
	}
	le := laser.New(power, velocity, passes)
	if err := machine.Check(le); err != nil {
		return laser.LE{}, err
	}
	return le, nil
}

func printLEV(w io.Writer, le laser.LE, machine laser.Machine) error {
	_, err := fmt.Fprintf(w, "%s\tS: %s\n", le.String(), strconv.FormatFloat(machine.S(le.Power), 'f', -1, 64))
	return err
}

// parseRangeFlag 解析 "起:止:步数"；单个值表示只有一步。
func parseRangeFlag(s string, parse func(string) (float64, error)) (laser.Range, error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		v, err := parse(parts[0])
		if err != nil {
			return laser.Range{}, err
		}
		return laser.Single(v), nil
	case 3:
		from, err := parse(parts[0])
		if err != nil {
			return laser.Range{}, err
		}
		to, err := parse(parts[1])
		if err != nil {
			return laser.Range{}, err
		}
		steps, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil || steps < 1 {
			return laser.Range{}, fmt.Errorf("步数应为正整数: %q", parts[2])
		}
		return laser.Range{From: from, To: to, Steps: steps}, nil
	default:
		return laser.Range{}, fmt.Errorf("范围应写作 起:止:步数，实际为 %q", s)
	}
}

// writePattern 把单个刀路块包装成任务结果并输出 G-code。
func writePattern(name string, block layout.Block, out string, stdout io.Writer) error {
	result := &layout.Result{
		Name:    name,
		Machine: profile.Machine(),
		Blocks:  []layout.Block{block},
	}
	if err := renderTo(gcodeRenderer(profile), result, out, stdout); err != nil {
		return fmt.Errorf("渲染 G-code 失败: %w", err)
	}
	if logger != nil {
		logger.Info("已生成 G-code",
			zap.String("pattern", name),
			zap.Int("ops", len(block.Ops)),
			zap.String("out", out),
		)
	}
	return nil
}
