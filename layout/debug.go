package layout

import (
	"encoding/json"
	"os"
)

// DebugOptions 控制调试 JSON 的内容。
type DebugOptions struct {
	Ops bool // 输出每条刀路指令；默认只输出统计信息
}

type debugBlock struct {
	Block
	OpCount  int     `json:"opCount"`
	BurnMM   float64 `json:"burnLength"`
	TravelMM float64 `json:"travelLength"`
}

type debugResult struct {
	Result
	Blocks []debugBlock `json:"blocks"`
}

// WriteDebugJSON 将布局结果输出为 JSON，便于调试或可视化。
func WriteDebugJSON(res *Result, path string, opts DebugOptions) error {
	if res == nil {
		return nil
	}
	out := debugResult{Result: *res, Blocks: make([]debugBlock, 0, len(res.Blocks))}
	for _, b := range res.Blocks {
		stats := Measure(b.Ops)
		db := debugBlock{Block: b, OpCount: len(b.Ops), BurnMM: stats.Burn, TravelMM: stats.Travel}
		if !opts.Ops {
			db.Ops = nil
		}
		out.Blocks = append(out.Blocks, db)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
