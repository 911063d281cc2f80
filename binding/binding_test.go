package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleData() map[string]any {
	return map[string]any{
		"meta": map[string]string{"material": "birch", "batch": "12"},
		"machine": map[string]float64{
			"max_power": 20,
		},
		"data": map[string]any{
			"runs": []any{1500.0, 2.5},
			"tags": []string{"plywood", "3mm"},
		},
	}
}

func TestInterpolate(t *testing.T) {
	data := sampleData()
	assert.Equal(t, "birch L12", Interpolate("${meta.material} L${ meta.batch }", data))
	assert.Equal(t, "F1500", Interpolate("F${data.runs[0]}", data))
	assert.Equal(t, "2.5", Interpolate("${data.runs[1]}", data))
	assert.Equal(t, "3mm", Interpolate("${data.tags[1]}", data))
	assert.Equal(t, "20", Interpolate("${machine.max_power}", data))
}

func TestInterpolateKeepsUnknown(t *testing.T) {
	data := sampleData()
	assert.Equal(t, "${meta.nope}", Interpolate("${meta.nope}", data))
	assert.Equal(t, "${data.runs[5]}", Interpolate("${data.runs[5]}", data))
	assert.Equal(t, "${data.runs[x]}", Interpolate("${data.runs[x]}", data))
	assert.Equal(t, "plain", Interpolate("plain", nil))
}

func TestStrict(t *testing.T) {
	data := sampleData()
	out, err := Strict("L${meta.batch}", data)
	require.NoError(t, err)
	assert.Equal(t, "L12", out)

	_, err = Strict("${meta.zzz}-${meta.aaa}", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "meta.aaa, meta.zzz")
}
