package layout

import (
	"errors"
	"fmt"
	"math"

	"github.com/ByLCY/lasercal/laser"
)

const (
	// MinLPI 是光栅填充允许的最小线密度；0 表示只描边。
	MinLPI = 50
	// DefaultOverscan 是光栅行两端的加减速余量，占格宽的比例。
	DefaultOverscan = 0.1
	// HeadingAuto 让字段根据 LE 自动生成标题。
	HeadingAuto = "auto"
)

// ErrLPITooSmall 表示 LPI 非零且小于 MinLPI。
var ErrLPITooSmall = errors.New("LPI 过小")

// CheckLPI 校验线密度。
func CheckLPI(lpi float64) error {
	if lpi < 0 || (lpi != 0 && lpi < MinLPI) {
		return fmt.Errorf("%w: LPI of %g is too small, it should be at least %d", ErrLPITooSmall, lpi, MinLPI)
	}
	return nil
}

// grid 记录网格几何。顶部额外预留一行作为标题行。
type grid struct {
	rows, columns int
	padding       float64
	colWidth      float64
	rowHeight     float64
}

func newGrid(rows, columns int, width, height, padding float64) (grid, error) {
	if rows < 1 || columns < 1 {
		return grid{}, fmt.Errorf("网格行列数必须至少为 1（rows=%d, columns=%d）", rows, columns)
	}
	if padding < 0 {
		return grid{}, fmt.Errorf("padding %g 不能为负数", padding)
	}
	g := grid{
		rows:      rows,
		columns:   columns,
		padding:   padding,
		colWidth:  (width - float64(columns-1)*padding) / float64(columns),
		rowHeight: (height - float64(rows)*padding) / float64(rows+1),
	}
	if g.colWidth <= 0 || g.rowHeight <= 0 {
		return grid{}, fmt.Errorf("区域 %gx%g mm 放不下 %dx%d 个单元格（格宽 %.3f，格高 %.3f）",
			width, height, rows, columns, g.colWidth, g.rowHeight)
	}
	return g, nil
}

func (g grid) cells() int { return g.rows * g.columns }

// cell 返回第 i 个单元格的左下角：从左到右填满一行后换到上一行。
func (g grid) cell(i int) (float64, float64) {
	col := i % g.columns
	row := i / g.columns
	return float64(col) * (g.colWidth + g.padding), float64(row) * (g.rowHeight + g.padding)
}

// headingY 是预留标题行的底边。
func (g grid) headingY() float64 {
	return float64(g.rows) * (g.rowHeight + g.padding)
}

// extent 计算前 n 个单元格占用的尺寸。
func (g grid) extent(n int) Extent {
	cols := g.columns
	if n < cols {
		cols = n
	}
	rows := (n + g.columns - 1) / g.columns
	return Extent{
		Width:     float64(cols)*(g.colWidth+g.padding) - g.padding,
		Height:    float64(rows)*(g.rowHeight+g.padding) - g.padding,
		ColWidth:  g.colWidth,
		RowHeight: g.rowHeight,
	}
}

// fill 描述单元格的填充方式。
type fill struct {
	lpi           float64
	overscan      float64
	bidirectional bool
	machine       laser.Machine
}

// cellOps 生成一个单元格的全部遍数。lpi 为 0 时描出矩形边框，
// 否则按 lpi 光栅填充：每行先空功率加速进入，满功率扫过单元格，再空功率减速离开。
func (g grid) cellOps(le laser.LE, x, y float64, f fill) []Op {
	s := f.machine.S(le.Power)
	var ops []Op
	for i := 0; i < le.Passes; i++ {
		ops = append(ops,
			Comment(fmt.Sprintf("pass %d/%d", i+1, le.Passes)),
			Rapid(x, y),
		)
		if f.lpi == 0 {
			ops = append(ops,
				Linear(x+g.colWidth, y).WithPower(s).WithFeed(le.Velocity),
				Linear(x+g.colWidth, y+g.rowHeight),
				Linear(x, y+g.rowHeight),
				Linear(x, y),
			)
			continue
		}
		lines := int(math.Round(f.lpi * g.rowHeight / MmPerInch))
		if lines < 1 {
			lines = 1
		}
		lineHeight := g.rowHeight / float64(lines)
		over := g.colWidth * f.overscan
		left, right := x, x+g.colWidth
		for p := 0; p < lines; p++ {
			ly := y + lineHeight*float64(p)
			start, end, dir := left, right, 1.0
			if f.bidirectional && p%2 == 1 {
				start, end, dir = right, left, -1.0
			}
			ops = append(ops,
				Rapid(start-dir*over, ly),
				LinearX(start).WithPower(0).WithFeed(le.Velocity),
				LinearX(end).WithPower(s).WithFeed(le.Velocity),
				LinearX(end+dir*over).WithPower(0).WithFeed(le.Velocity),
			)
		}
	}
	return ops
}

// LEField 为每个 LE 生成一个测试单元格。
type LEField struct {
	LEs     []laser.LE
	Machine laser.Machine

	Rows    int
	Columns int
	Width   float64 // 整个区域宽度（含间距）
	Height  float64 // 整个区域高度（含间距与标题行）
	Padding float64

	Overscan      float64 // 占格宽比例，0 表示无超程
	Bidirectional bool

	Heading   string    // 标题文字；HeadingAuto 表示按 LEV 范围生成
	HeadingLE *laser.LE // 标题使用的 LE，默认取第一个
}

// ColWidth 返回单元格宽度。
func (f *LEField) ColWidth() float64 {
	return (f.Width - float64(f.Columns-1)*f.Padding) / float64(f.Columns)
}

// RowHeight 返回单元格高度（顶部预留一行给标题）。
func (f *LEField) RowHeight() float64 {
	return (f.Height - float64(f.Rows)*f.Padding) / float64(f.Rows+1)
}

// Make 生成刀路。lpi 为 0 时只描边。
func (f *LEField) Make(lpi float64) ([]Op, Extent, error) {
	if err := CheckLPI(lpi); err != nil {
		return nil, Extent{}, err
	}
	g, err := newGrid(f.Rows, f.Columns, f.Width, f.Height, f.Padding)
	if err != nil {
		return nil, Extent{}, err
	}
	if len(f.LEs) == 0 {
		return nil, Extent{}, fmt.Errorf("le-field 中没有任何 LE")
	}
	if len(f.LEs) > g.cells() {
		return nil, Extent{}, fmt.Errorf("需要 %d 个单元格，但 %dx%d 网格只有 %d 个", len(f.LEs), f.Rows, f.Columns, g.cells())
	}
	for i, le := range f.LEs {
		if err := f.Machine.Check(le); err != nil {
			return nil, Extent{}, fmt.Errorf("第 %d 个 LE: %w", i+1, err)
		}
	}

	fl := fill{lpi: lpi, overscan: f.Overscan, bidirectional: f.Bidirectional, machine: f.Machine}
	var ops []Op
	for i, le := range f.LEs {
		x, y := g.cell(i)
		ops = append(ops, Comment("next LE: "+le.String()))
		ops = append(ops, g.cellOps(le, x, y, fl)...)
	}

	if f.Heading != "" {
		text := f.Heading
		if text == HeadingAuto {
			text = levRangeHeading(f.LEs)
		}
		headingLE := f.LEs[0]
		if f.HeadingLE != nil {
			headingLE = *f.HeadingLE
		}
		headingOps, err := FitLettering(headingLE, f.Machine, text, f.Width, g.rowHeight).WriteString(text, 0, g.headingY())
		if err != nil {
			return nil, Extent{}, fmt.Errorf("标题: %w", err)
		}
		ops = append(ops, headingOps...)
	}
	return ops, g.extent(len(f.LEs)), nil
}

// levRangeHeading 生成 "L<最小LEV>-<最大LEV>"。
func levRangeHeading(les []laser.LE) string {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, le := range les {
		lo = math.Min(lo, le.LEV())
		hi = math.Max(hi, le.LEV())
	}
	if math.Round(lo) == math.Round(hi) {
		return fmt.Sprintf("L%.0f", lo)
	}
	return fmt.Sprintf("L%.0f-%.0f", lo, hi)
}
