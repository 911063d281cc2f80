// Package gcoderenderer 把布局结果写成 GRBL 风格的 G-code 文本。
package gcoderenderer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ByLCY/lasercal/laser"
	"github.com/ByLCY/lasercal/layout"
	"github.com/ByLCY/lasercal/renderer"
)

// DefaultPrecision 是坐标与 S/F 的默认小数位数。
const DefaultPrecision = 3

// Options 配置 G-code 输出。
type Options struct {
	Precision *int     // 为空或为负数时使用 DefaultPrecision；0 表示输出整数
	Preamble  []string // 为空时使用 Preamble(laserMode)
	Postamble []string // 为空时使用 Postamble()
}

// Renderer 输出 G-code。
type Renderer struct {
	opts      Options
	precision int
}

var _ renderer.Renderer = (*Renderer)(nil)

// NewRenderer 创建 G-code 渲染器。
func NewRenderer(opts Options) *Renderer {
	precision := DefaultPrecision
	if opts.Precision != nil && *opts.Precision >= 0 {
		precision = *opts.Precision
	}
	return &Renderer{opts: opts, precision: precision}
}

// Preamble 返回默认起始代码，第五行随激光模式变化。
func Preamble(laserMode string) []string {
	mode := "M4 (laser dynamic mode)"
	if strings.EqualFold(laserMode, laser.ModeConstant) {
		mode = "M3 (laser constant mode)"
	}
	return []string{
		"G00; G17; G40;",
		"G21; G54",
		"G92 X0Y0 (start at current pos)",
		"G90 (absolute coords)",
		mode,
		"G0; X0Y0",
	}
}

// Postamble 返回默认结束代码：关闭激光并回到起点。
func Postamble() []string {
	return []string{
		"M5 (laser off)",
		"G0 X0Y0 (return to origin)",
	}
}

// Render 依次输出头部注释、起始代码、各刀路块与结束代码。
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(result.Blocks) == 0 {
		return nil, fmt.Errorf("任务 %s 没有任何刀路块", result.Name)
	}

	var buf bytes.Buffer
	r.writeHeader(&buf, result)

	pre := r.opts.Preamble
	if len(pre) == 0 {
		pre = Preamble(result.Machine.LaserMode)
	}
	writeLines(&buf, pre)

	for _, block := range result.Blocks {
		stats := layout.Measure(block.Ops)
		r.comment(&buf, fmt.Sprintf("block %s (%s) @ x: %s y: %s", block.Name, block.Kind,
			r.number(block.Origin.X), r.number(block.Origin.Y)))
		r.comment(&buf, fmt.Sprintf("burn: %smm travel: %smm feed time: %smin",
			r.number(stats.Burn), r.number(stats.Travel), r.number(stats.FeedTime)))
		for _, op := range block.Ops {
			if err := r.writeOp(&buf, op); err != nil {
				return nil, fmt.Errorf("刀路块 %s: %w", block.Name, err)
			}
		}
	}

	post := r.opts.Postamble
	if len(post) == 0 {
		post = Postamble()
	}
	writeLines(&buf, post)
	return buf.Bytes(), nil
}

func (r *Renderer) writeHeader(buf *bytes.Buffer, result *layout.Result) {
	r.comment(buf, "job: "+result.Name)
	if result.Meta.Title != "" {
		r.comment(buf, "title: "+result.Meta.Title)
	}
	for _, e := range result.Meta.Entries {
		r.comment(buf, e.Key+": "+e.Value)
	}
	m := result.Machine
	line := fmt.Sprintf("machine: max power %sW, S max %s, mode %s",
		r.number(m.MaxPower), r.number(m.SMax), m.LaserMode)
	if m.MaxVelocity > 0 {
		line += fmt.Sprintf(", max velocity %smm/min", r.number(m.MaxVelocity))
	}
	r.comment(buf, line)
}

func (r *Renderer) writeOp(buf *bytes.Buffer, op layout.Op) error {
	switch op.Kind {
	case layout.OpComment:
		r.comment(buf, op.Comment)
		return nil
	case layout.OpRapid:
		buf.WriteString("G0")
	case layout.OpLinear:
		buf.WriteString("G1")
	default:
		return fmt.Errorf("未知指令类型 %d", op.Kind)
	}
	if op.Has(layout.WordX) {
		buf.WriteString(" X" + r.number(op.X))
	}
	if op.Has(layout.WordY) {
		buf.WriteString(" Y" + r.number(op.Y))
	}
	if op.Has(layout.WordS) {
		buf.WriteString(" S" + r.number(op.S))
	}
	if op.Has(layout.WordF) {
		buf.WriteString(" F" + r.number(op.F))
	}
	buf.WriteByte('\n')
	return nil
}

// comment 写一行 "; text"，注释中的换行会被拆成多行注释。
func (r *Renderer) comment(buf *bytes.Buffer, text string) {
	for _, line := range strings.Split(text, "\n") {
		buf.WriteString("; ")
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
}

// number 按精度输出并去掉末尾的 0，-0 输出为 0。
func (r *Renderer) number(v float64) string {
	return layout.FormatNumber(v, r.precision)
}

func writeLines(buf *bytes.Buffer, lines []string) {
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
}
