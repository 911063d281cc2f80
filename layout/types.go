package layout

import (
	"math"

	"github.com/ByLCY/lasercal/laser"
)

// 该文件定义布局结果与刀路指令，供布局计算、渲染与调试 JSON 共用。
// 坐标单位统一为 mm，原点在左下角，Y 轴向上（与 G-code 一致）。

// Result 保存一个校准任务的全部刀路块。
type Result struct {
	Name    string        `json:"name"`
	Meta    JobMeta       `json:"meta"`
	Machine laser.Machine `json:"machine"`
	Blocks  []Block       `json:"blocks"`
}

// JobMeta 记录 meta 段落中的键值，按声明顺序保存。
type JobMeta struct {
	Title   string      `json:"title"`
	Entries []MetaEntry `json:"entries,omitempty"`
}

// MetaEntry 是一条 meta 赋值。
type MetaEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Block 对应一个 le-field / passes-field / text 段落。
type Block struct {
	Name   string     `json:"name"`
	Kind   string     `json:"kind"`
	Origin Point      `json:"origin"`
	Bounds Rect       `json:"bounds"`
	Extent *Extent    `json:"extent,omitempty"`
	LEs    []laser.LE `json:"les,omitempty"`
	Ops    []Op       `json:"ops"`
}

const (
	KindLEField     = "le-field"
	KindPassesField = "passes-field"
	KindText        = "text"
)

// Point 是一个平面坐标（mm）。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect 是轴对齐包围盒。
type Rect struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Empty 表示包围盒内没有任何点。
func (r Rect) Empty() bool { return r.MaxX < r.MinX || r.MaxY < r.MinY }

// Overlaps 判断两个包围盒是否有面积重叠（仅相邻不算）。
func (r Rect) Overlaps(o Rect) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.MinX < o.MaxX && o.MinX < r.MaxX && r.MinY < o.MaxY && o.MinY < r.MaxY
}

// Union 合并两个包围盒。
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		MinX: math.Min(r.MinX, o.MinX),
		MinY: math.Min(r.MinY, o.MinY),
		MaxX: math.Max(r.MaxX, o.MaxX),
		MaxY: math.Max(r.MaxY, o.MaxY),
	}
}

// EmptyRect 返回一个可用于 Union 累加的空包围盒。
func EmptyRect() Rect {
	return Rect{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
}

// Extent 是网格生成后的尺寸信息。
type Extent struct {
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	ColWidth  float64 `json:"colWidth"`
	RowHeight float64 `json:"rowHeight"`
	MaxPasses int     `json:"maxPasses,omitempty"`
}

// OpKind 区分注释、快速移动（G0）与直线插补（G1）。
type OpKind int

const (
	OpComment OpKind = iota
	OpRapid
	OpLinear
)

func (k OpKind) String() string {
	switch k {
	case OpComment:
		return "comment"
	case OpRapid:
		return "G0"
	case OpLinear:
		return "G1"
	default:
		return "unknown"
	}
}

// Words 标记一条指令实际携带了哪些字（X/Y/S/F）。S 与 F 在控制器中是模态的。
type Words uint8

const (
	WordX Words = 1 << iota
	WordY
	WordS
	WordF
)

// Op 是一条刀路指令。
type Op struct {
	Kind    OpKind  `json:"kind"`
	Comment string  `json:"comment,omitempty"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	S       float64 `json:"s,omitempty"`
	F       float64 `json:"f,omitempty"`
	Words   Words   `json:"words,omitempty"`
}

// Has 判断指令是否携带某个字。
func (o Op) Has(w Words) bool { return o.Words&w != 0 }

// Comment 构造一条注释。
func Comment(text string) Op { return Op{Kind: OpComment, Comment: text} }

// Rapid 构造 G0 X Y。
func Rapid(x, y float64) Op { return Op{Kind: OpRapid, X: x, Y: y, Words: WordX | WordY} }

// Linear 构造 G1 X Y。
func Linear(x, y float64) Op { return Op{Kind: OpLinear, X: x, Y: y, Words: WordX | WordY} }

// LinearX 构造只移动 X 轴的 G1。
func LinearX(x float64) Op { return Op{Kind: OpLinear, X: x, Words: WordX} }

// WithPower 附加 S 字。
func (o Op) WithPower(s float64) Op {
	o.S = s
	o.Words |= WordS
	return o
}

// WithFeed 附加 F 字。
func (o Op) WithFeed(f float64) Op {
	o.F = f
	o.Words |= WordF
	return o
}

// Translate 平移指令中携带的坐标。
func (o Op) Translate(dx, dy float64) Op {
	if o.Has(WordX) {
		o.X += dx
	}
	if o.Has(WordY) {
		o.Y += dy
	}
	return o
}

// TranslateOps 返回平移后的指令副本。
func TranslateOps(ops []Op, dx, dy float64) []Op {
	out := make([]Op, len(ops))
	for i, op := range ops {
		out[i] = op.Translate(dx, dy)
	}
	return out
}

// Bounds 从原点 (0,0) 出发回放指令，计算刀路（含空移）经过的包围盒。
func Bounds(ops []Op) Rect {
	r := EmptyRect()
	var x, y float64
	for _, op := range ops {
		if op.Kind == OpComment || op.Words&(WordX|WordY) == 0 {
			continue
		}
		if op.Has(WordX) {
			x = op.X
		}
		if op.Has(WordY) {
			y = op.Y
		}
		r = r.Union(Rect{MinX: x, MinY: y, MaxX: x, MaxY: y})
	}
	return r
}
