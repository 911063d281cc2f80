package layout

import (
	"fmt"

	"github.com/ByLCY/lasercal/laser"
)

// DefaultVariance 是相邻两行之间的 LEV 变化比例。
const DefaultVariance = 0.05

// PassesField 检验遍数的影响：每一行的 LEV 相同，列越靠右遍数越多、单遍速度越快；
// 行与行之间的 LEV 围绕 Base 交替上下浮动。
type PassesField struct {
	Base    laser.LE
	Machine laser.Machine

	Rows    int
	Columns int
	Width   float64
	Height  float64
	Padding float64

	Factor   int     // 遍数步进，第 c 列（c>=1）为 (c+1)*Factor 遍；0 视为 1
	Variance float64 // 第 r 行的 LEV 偏移为 Base.LEV*Variance*r，偶数行加、奇数行减

	Overscan      float64
	Bidirectional bool

	Heading string // HeadingAuto 生成 "L<基准LEV>,<最大遍数>"
}

func (f *PassesField) factor() (int, error) {
	switch {
	case f.Factor == 0:
		return 1, nil
	case f.Factor < 0:
		return 0, fmt.Errorf("passes factor %d 不能为负数", f.Factor)
	default:
		return f.Factor, nil
	}
}

// rowOrder 复现行的排列：偶数行从大到小排在前面，奇数行从小到大排在后面，
// 于是 LEV 从第一行到最后一行递减。
func rowOrder(rows int) []int {
	order := make([]int, 0, rows)
	last := rows - 1
	if last%2 == 1 {
		last--
	}
	for r := last; r >= 0; r -= 2 {
		order = append(order, r)
	}
	for r := 1; r < rows; r += 2 {
		order = append(order, r)
	}
	return order
}

// columnOrder 给出第 r 行各列的排列：偶数行单遍列在最前，其余列遍数从大到小；
// 奇数行遍数从大到小，单遍列在最后。
func columnOrder(r, columns int) []int {
	order := make([]int, 0, columns)
	if r%2 == 0 {
		order = append(order, 0)
	}
	for c := columns - 1; c >= 1; c-- {
		order = append(order, c)
	}
	if r%2 == 1 {
		order = append(order, 0)
	}
	return order
}

// MakeLEList 计算全部单元格的 LE，按单元格顺序返回，并返回最大遍数。
func (f *PassesField) MakeLEList() ([]laser.LE, int, error) {
	factor, err := f.factor()
	if err != nil {
		return nil, 0, err
	}
	if f.Rows < 1 || f.Columns < 1 {
		return nil, 0, fmt.Errorf("网格行列数必须至少为 1（rows=%d, columns=%d）", f.Rows, f.Columns)
	}
	if err := f.Base.Validate(); err != nil {
		return nil, 0, fmt.Errorf("基准 LE: %w", err)
	}

	baseLEV := f.Base.LEV()
	out := make([]laser.LE, 0, f.Rows*f.Columns)
	for _, r := range rowOrder(f.Rows) {
		sign := 1.0
		if r%2 == 1 {
			sign = -1.0
		}
		rowLE, err := f.Base.AddLEV(baseLEV * f.Variance * float64(r) * sign)
		if err != nil {
			return nil, 0, fmt.Errorf("第 %d 行: %w", r, err)
		}
		for _, c := range columnOrder(r, f.Columns) {
			if c == 0 {
				out = append(out, rowLE)
				continue
			}
			le, err := rowLE.WithPasses((c + 1) * factor)
			if err != nil {
				return nil, 0, fmt.Errorf("第 %d 行第 %d 列: %w", r, c, err)
			}
			out = append(out, le)
		}
	}
	return out, f.Columns * factor, nil
}

// Make 生成刀路，Extent.MaxPasses 为最大遍数。
func (f *PassesField) Make(lpi float64) ([]Op, Extent, error) {
	if err := CheckLPI(lpi); err != nil {
		return nil, Extent{}, err
	}
	g, err := newGrid(f.Rows, f.Columns, f.Width, f.Height, f.Padding)
	if err != nil {
		return nil, Extent{}, err
	}
	les, maxPasses, err := f.MakeLEList()
	if err != nil {
		return nil, Extent{}, err
	}
	for i, le := range les {
		if err := f.Machine.Check(le); err != nil {
			return nil, Extent{}, fmt.Errorf("第 %d 个单元格: %w", i+1, err)
		}
	}

	fl := fill{lpi: lpi, overscan: f.Overscan, bidirectional: f.Bidirectional, machine: f.Machine}
	var ops []Op
	for i, le := range les {
		x, y := g.cell(i)
		ops = append(ops, Comment("next LE: "+le.String()))
		ops = append(ops, g.cellOps(le, x, y, fl)...)
	}

	if f.Heading != "" {
		text := f.Heading
		if text == HeadingAuto {
			text = fmt.Sprintf("L%.0f,%d", f.Base.LEV(), maxPasses)
		}
		headingOps, err := FitLettering(f.Base, f.Machine, text, f.Width, g.rowHeight).WriteString(text, 0, g.headingY())
		if err != nil {
			return nil, Extent{}, fmt.Errorf("标题: %w", err)
		}
		ops = append(ops, headingOps...)
	}

	ext := g.extent(len(les))
	ext.MaxPasses = maxPasses
	return ops, ext, nil
}
