package gcoderenderer

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/lasercal/laser"
	"github.com/ByLCY/lasercal/layout"
)

func outlineResult() *layout.Result {
	le := laser.New(10, 1000, 1)
	ops := []layout.Op{
		layout.Comment("next LE: " + le.String()),
		layout.Comment("pass 1/1"),
		layout.Rapid(0, 0),
		layout.Linear(10, 0).WithPower(500).WithFeed(1000),
		layout.Linear(10, 10),
		layout.Linear(0, 10),
		layout.Linear(0, 0),
	}
	return &layout.Result{
		Name:    "t",
		Meta:    layout.JobMeta{Title: "Birch"},
		Machine: laser.DefaultMachine(),
		Blocks: []layout.Block{{
			Name:   "grid",
			Kind:   layout.KindLEField,
			Bounds: layout.Bounds(ops),
			LEs:    []laser.LE{le},
			Ops:    ops,
		}},
	}
}

func TestRenderOutline(t *testing.T) {
	out, err := NewRenderer(Options{}).Render(outlineResult())
	require.NoError(t, err)

	want := strings.Join([]string{
		"; job: t",
		"; title: Birch",
		"; machine: max power 20W, S max 1000, mode M4",
		"G00; G17; G40;",
		"G21; G54",
		"G92 X0Y0 (start at current pos)",
		"G90 (absolute coords)",
		"M4 (laser dynamic mode)",
		"G0; X0Y0",
		"; block grid (le-field) @ x: 0 y: 0",
		"; burn: 40mm travel: 0mm feed time: 0.04min",
		"; next LE: power: 10.00\tvelocity: 1000.0\tpasses: 1\tLEV: 600",
		"; pass 1/1",
		"G0 X0 Y0",
		"G1 X10 Y0 S500 F1000",
		"G1 X10 Y10",
		"G1 X0 Y10",
		"G1 X0 Y0",
		"M5 (laser off)",
		"G0 X0Y0 (return to origin)",
	}, "\n") + "\n"
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Fatalf("G-code 不一致 (-want +got):\n%s", diff)
	}
}

func TestRenderConstantModeAndOverrides(t *testing.T) {
	res := outlineResult()
	res.Machine.LaserMode = laser.ModeConstant
	res.Machine.MaxVelocity = 6000

	out, err := NewRenderer(Options{}).Render(res)
	require.NoError(t, err)
	assert.Contains(t, string(out), "\nM3 (laser constant mode)\n")
	assert.Contains(t, string(out), "max velocity 6000mm/min")

	out, err = NewRenderer(Options{
		Preamble:  []string{"G21", "M3"},
		Postamble: []string{"M5"},
	}).Render(res)
	require.NoError(t, err)
	text := string(out)
	assert.NotContains(t, text, "G92")
	assert.True(t, strings.HasSuffix(text, "G1 X0 Y0\nM5\n"))
}

func TestRenderXOnlyMoves(t *testing.T) {
	res := outlineResult()
	res.Blocks[0].Ops = []layout.Op{
		layout.Rapid(-1, 0.508),
		layout.LinearX(0).WithPower(0).WithFeed(1000),
		layout.LinearX(10).WithPower(500).WithFeed(1000),
	}
	two := 2
	out, err := NewRenderer(Options{Precision: &two}).Render(res)
	require.NoError(t, err)
	assert.Contains(t, string(out), "G0 X-1 Y0.51\nG1 X0 S0 F1000\nG1 X10 S500 F1000\n")

	// 精度 0 输出整数，不回退到默认精度
	zero := 0
	out, err = NewRenderer(Options{Precision: &zero}).Render(res)
	require.NoError(t, err)
	assert.Contains(t, string(out), "G0 X-1 Y1\nG1 X0 S0 F1000\nG1 X10 S500 F1000\n")
}

func TestRenderErrors(t *testing.T) {
	_, err := NewRenderer(Options{}).Render(nil)
	assert.Error(t, err)
	_, err = NewRenderer(Options{}).Render(&layout.Result{Name: "empty"})
	assert.Error(t, err)
}
