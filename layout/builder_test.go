package layout

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ByLCY/lasercal/dsl"
	"github.com/ByLCY/lasercal/laser"
)

func build(t *testing.T, src string, data any) (*Result, error) {
	t.Helper()
	doc, err := dsl.ParseString(src)
	require.NoError(t, err, "解析任务失败")
	return Build(doc, data, BuildOptions{})
}

const basicJob = `
job Basic v1 {
  meta {
    title: "Birch"
    batch: "42"
  }
  machine {
    max-power: 20W
    s-max: 1000
  }
  le-field grid {
    size: [10mm, 20mm]; padding: 0
    le 10W 1000mm/min
  }
  text label "L${meta.batch}" {
    origin: [20mm, 0mm]
    height: 10mm
    le 5W 1000mm/min
  }
}
`

func TestBuildBasicJob(t *testing.T) {
	res, err := build(t, basicJob, nil)
	require.NoError(t, err)

	assert.Equal(t, "Basic", res.Name)
	assert.Equal(t, JobMeta{Title: "Birch", Entries: []MetaEntry{{Key: "batch", Value: "42"}}}, res.Meta)
	assert.Equal(t, laser.DefaultMachine(), res.Machine)
	require.Len(t, res.Blocks, 2)

	field := res.Blocks[0]
	assert.Equal(t, "grid", field.Name)
	assert.Equal(t, KindLEField, field.Kind)
	want := []Op{
		Comment("next LE: power: 10.00\tvelocity: 1000.0\tpasses: 1\tLEV: 600"),
		Comment("pass 1/1"),
		Rapid(0, 0),
		burn(Linear(10, 0), 500, 1000),
		Linear(10, 10),
		Linear(0, 10),
		Linear(0, 0),
	}
	if diff := cmp.Diff(want, field.Ops, approx); diff != "" {
		t.Fatalf("网格刀路不一致 (-want +got):\n%s", diff)
	}
	assert.Equal(t, Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}, field.Bounds)

	text := res.Blocks[1]
	assert.Equal(t, "label", text.Name)
	assert.Equal(t, KindText, text.Kind)
	assert.Equal(t, Point{X: 20, Y: 0}, text.Origin)
	assert.Equal(t, []laser.LE{laser.New(5, 1000, 1)}, text.LEs)
	assert.Equal(t, "writing string L42 @ x: 0\ty: 0", text.Ops[0].Comment)
	assert.Equal(t, burn(Rapid(20, 10), 250, 1000), text.Ops[2])
	assert.Equal(t, Rect{MinX: 20, MinY: 0, MaxX: 37, MaxY: 10}, text.Bounds)
}

func TestBuildMatrixAndDefaults(t *testing.T) {
	res, err := build(t, `
job Matrix v1 {
  le-field {
    rows: 2; columns: 2
    size: [40mm, 30mm]
    matrix power 5W 50% 2 velocity 1000 2000 2
  }
  passes-field {
    origin: [50mm, 0mm]
    rows: 2; columns: 3
    size: [40mm, 30mm]
    base 10W 1200mm/min
  }
}
`, nil)
	require.NoError(t, err)
	require.Len(t, res.Blocks, 2)

	field := res.Blocks[0]
	assert.Equal(t, "le-field-1", field.Name)
	assert.Equal(t, []laser.LE{
		laser.New(5, 1000, 1), laser.New(10, 1000, 1),
		laser.New(5, 2000, 1), laser.New(10, 2000, 1),
	}, field.LEs)
	require.NotNil(t, field.Extent)
	assert.InDelta(t, 19.5, field.Extent.ColWidth, 1e-9)

	passes := res.Blocks[1]
	assert.Equal(t, "passes-field-1", passes.Name)
	assert.Len(t, passes.LEs, 6)
	assert.Equal(t, 3, passes.Extent.MaxPasses)
	assert.InDelta(t, 50, passes.Bounds.MinX, 1e-9)
}

func TestBuildTextData(t *testing.T) {
	res, err := build(t, `
job Data v1 {
  text "${data.n}.5" {
    le 5W 1000mm/min
  }
}
`, map[string]any{"n": float64(7)})
	require.NoError(t, err)
	assert.Equal(t, "writing string 7.5 @ x: 0\ty: 0", res.Blocks[0].Ops[0].Comment)
}

func TestBuildMachineSection(t *testing.T) {
	res, err := build(t, `
job Mode v1 {
  machine {
    laser-mode: m3
    max-velocity: 100mm/s
  }
  text "1" { le 5W 1000mm/min }
}
`, nil)
	require.NoError(t, err)
	assert.Equal(t, "M3", res.Machine.LaserMode)
	assert.Equal(t, 6000.0, res.Machine.MaxVelocity)
}

func TestBuildErrors(t *testing.T) {
	cases := map[string]struct {
		src  string
		want string
	}{
		"unknown attribute": {
			src:  `job E v1 { le-field { colour: red; le 1W 100 } }`,
			want: "不支持属性",
		},
		"duplicate attribute": {
			src:  `job E v1 { le-field { rows: 1; rows: 2; le 1W 100 } }`,
			want: "重复设置属性",
		},
		"unknown command": {
			src:  `job E v1 { le-field { burn 1W 100 } }`,
			want: "不支持命令",
		},
		"missing base": {
			src:  `job E v1 { passes-field { rows: 2 } }`,
			want: "缺少 base",
		},
		"missing le": {
			src:  `job E v1 { text "1" { height: 5mm } }`,
			want: "缺少 le",
		},
		"unresolved placeholder": {
			src:  `job E v1 { text "${data.nope}" { le 1W 100 } }`,
			want: "无法解析占位符: data.nope",
		},
		"machine limit": {
			src:  `job E v1 { machine { max-power: 10W } le-field { le 15W 100 } }`,
			want: "exceeds machine max",
		},
		"lpi": {
			src:  `job E v1 { le-field { lpi: 20; le 1W 100 } }`,
			want: "too small",
		},
		"bad matrix": {
			src:  `job E v1 { le-field { matrix power 1W 2W 2 } }`,
			want: "同时声明 power 与 velocity",
		},
		"bad passes": {
			src:  `job E v1 { le-field { le 1W 100 0 } }`,
			want: "遍数应为正整数",
		},
		"empty job": {
			src:  `job E v1 { meta { title: "x" } }`,
			want: "没有",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := build(t, tc.src, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestBuildWarnsOnOverlap(t *testing.T) {
	doc, err := dsl.ParseString(`
job Overlap v1 {
  le-field a { le 1W 100 }
  le-field b { le 2W 100 }
}
`)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.WarnLevel)
	_, err = Build(doc, nil, BuildOptions{Logger: zap.New(core)})
	require.NoError(t, err)

	entries := logs.FilterMessage("刀路块重叠，请检查 origin").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].ContextMap()["a"])
	assert.Equal(t, "b", entries[0].ContextMap()["b"])
}

func TestBuildOverscanOption(t *testing.T) {
	doc, err := dsl.ParseString(`job O v1 { le-field { lpi: 50; le 1W 100 } }`)
	require.NoError(t, err)

	firstRapid := func(res *Result) Op {
		for _, op := range res.Blocks[0].Ops {
			if op.Kind == OpRapid {
				return op
			}
		}
		t.Fatal("没有找到 G0")
		return Op{}
	}

	res, err := Build(doc, nil, BuildOptions{})
	require.NoError(t, err)
	assert.InDelta(t, -10, firstRapid(res).X, 1e-9)

	// 显式的 0 表示不要超程，不回退到默认值
	zero := 0.0
	res, err = Build(doc, nil, BuildOptions{Overscan: &zero})
	require.NoError(t, err)
	assert.InDelta(t, 0, firstRapid(res).X, 1e-9)
}
