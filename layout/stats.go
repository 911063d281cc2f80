package layout

import "math"

// Stats 汇总一段刀路的移动距离（mm）与 G1 耗时（分钟，不含 G0）。
type Stats struct {
	Burn     float64 `json:"burn"`
	Travel   float64 `json:"travel"`
	FeedTime float64 `json:"feedTime"`
}

// Measure 从原点回放刀路，S 与 F 按模态保持。
func Measure(ops []Op) Stats {
	var st Stats
	var x, y, s, f float64
	for _, op := range ops {
		if op.Kind == OpComment {
			continue
		}
		if op.Has(WordS) {
			s = op.S
		}
		if op.Has(WordF) {
			f = op.F
		}
		nx, ny := x, y
		if op.Has(WordX) {
			nx = op.X
		}
		if op.Has(WordY) {
			ny = op.Y
		}
		d := math.Hypot(nx-x, ny-y)
		switch {
		case op.Kind == OpLinear && s > 0:
			st.Burn += d
		default:
			st.Travel += d
		}
		if op.Kind == OpLinear && f > 0 {
			st.FeedTime += d / f
		}
		x, y = nx, ny
	}
	return st
}
