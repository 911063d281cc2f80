package layout

import (
	"errors"
	"fmt"

	"github.com/ByLCY/lasercal/glyph"
	"github.com/ByLCY/lasercal/laser"
)

// commentPrecision 是注释中坐标的小数位数。
const commentPrecision = 3

// 默认字形尺寸（mm）。
const (
	DefaultGlyphHeight  = 10.0
	DefaultGlyphWidth   = 5.0
	DefaultGlyphSpacing = 1.0
)

// ErrUnsupportedGlyph 表示字形表中没有该字符。
var ErrUnsupportedGlyph = errors.New("不支持的字符")

// Lettering 用单线字形把字符串刻成刀路，所有笔画使用同一个 LE。
type Lettering struct {
	LE      laser.LE
	Machine laser.Machine
	Height  float64
	Width   float64
	Spacing float64 // 字符间距
}

// NewLettering 创建字形写入器，尺寸 <= 0 时使用默认值。
func NewLettering(le laser.LE, machine laser.Machine, height, width, spacing float64) *Lettering {
	if height <= 0 {
		height = DefaultGlyphHeight
	}
	if width <= 0 {
		width = DefaultGlyphWidth
	}
	if spacing < 0 {
		spacing = DefaultGlyphSpacing
	}
	return &Lettering{LE: le, Machine: machine, Height: height, Width: width, Spacing: spacing}
}

// Advance 是相邻字符起点之间的距离。
func (l *Lettering) Advance() float64 { return l.Width + l.Spacing }

// TextWidth 返回字符串占用的宽度（最后一个字符后不计间距）。
func (l *Lettering) TextWidth(s string) float64 {
	n := len([]rune(s))
	if n == 0 {
		return 0
	}
	return float64(n)*l.Advance() - l.Spacing
}

// Check 在生成刀路前检查 LE 与全部字符。
func (l *Lettering) Check(s string) error {
	if err := l.Machine.Check(l.LE); err != nil {
		return err
	}
	for _, r := range s {
		if !glyph.Supported(r) {
			return fmt.Errorf("%w %q（可用字符: %q）", ErrUnsupportedGlyph, r, string(glyph.Runes()))
		}
	}
	return nil
}

// WriteString 从 (x, y) 开始逐字写入，返回包含注释的刀路。
func (l *Lettering) WriteString(s string, x, y float64) ([]Op, error) {
	if err := l.Check(s); err != nil {
		return nil, err
	}
	ops := []Op{Comment(fmt.Sprintf("writing string %s @ x: %s\ty: %s", s, FormatNumber(x, commentPrecision), FormatNumber(y, commentPrecision)))}
	for _, r := range s {
		ops = append(ops, Comment(fmt.Sprintf("char: '%c'", r)))
		charOps, err := l.Char(r, x, y)
		if err != nil {
			return nil, err
		}
		ops = append(ops, charOps...)
		x += l.Advance()
	}
	return ops, nil
}

// Char 生成单个字符的笔画：G0 到首点，其余各点 G1 连线。
func (l *Lettering) Char(r rune, x, y float64) ([]Op, error) {
	g, ok := glyph.Lookup(r)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedGlyph, r)
	}
	s := l.Machine.S(l.LE.Power)
	ops := make([]Op, 0, len(g))
	for i, pt := range g {
		px := x + pt.X*l.Width
		py := y + pt.Y*l.Height
		op := Linear(px, py)
		if i == 0 {
			op = Rapid(px, py)
		}
		ops = append(ops, op.WithPower(s).WithFeed(l.LE.Velocity))
	}
	return ops, nil
}

// FitLettering 在给定区域内按字数缩放字形：高度不超过 height，宽度为高度的一半，
// 间距为字宽的 1/5，整体宽度不超过 width。
func FitLettering(le laser.LE, machine laser.Machine, text string, width, height float64) *Lettering {
	n := float64(len([]rune(text)))
	glyphW := height / 2
	if n > 0 {
		// n 个字宽 + (n-1) 个间距 = n*w + (n-1)*w/5
		maxW := width / (n + (n-1)/5)
		if maxW < glyphW {
			glyphW = maxW
		}
	}
	glyphH := glyphW * 2
	return NewLettering(le, machine, glyphH, glyphW, glyphW/5)
}
