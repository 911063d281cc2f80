package layout

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasure(t *testing.T) {
	ops := []Op{
		Comment("start"),
		Rapid(0, 0),
		burn(Linear(10, 0), 500, 1000),
		Linear(10, 10),
		LinearX(0).WithPower(0),
		Rapid(0, 0),
	}
	st := Measure(ops)
	assert.InDelta(t, 20, st.Burn, 1e-9)
	assert.InDelta(t, 20, st.Travel, 1e-9)
	// 三段 G1 共 30mm，F1000
	assert.InDelta(t, 0.03, st.FeedTime, 1e-12)
}

func TestWriteDebugJSON(t *testing.T) {
	res, err := build(t, basicJob, nil)
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "debug.json")
	require.NoError(t, WriteDebugJSON(res, path, DebugOptions{}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got struct {
		Name   string `json:"name"`
		Blocks []struct {
			Name    string  `json:"name"`
			OpCount int     `json:"opCount"`
			Burn    float64 `json:"burnLength"`
			Ops     []Op    `json:"ops"`
		} `json:"blocks"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "Basic", got.Name)
	require.Len(t, got.Blocks, 2)
	assert.Equal(t, "grid", got.Blocks[0].Name)
	assert.Equal(t, 7, got.Blocks[0].OpCount)
	assert.InDelta(t, 40, got.Blocks[0].Burn, 1e-9)
	assert.Empty(t, got.Blocks[0].Ops)

	require.NoError(t, WriteDebugJSON(res, path, DebugOptions{Ops: true}))
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Len(t, got.Blocks[0].Ops, 7)
}
