package glyph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupportedRunes(t *testing.T) {
	assert.Equal(t, []rune(" ,-.0123456789FL"), Runes())
	assert.True(t, Supported('7'))
	assert.False(t, Supported('A'))
	assert.False(t, Supported('f'))
}

func TestLookupFractions(t *testing.T) {
	dot, ok := Lookup('.')
	require.True(t, ok)
	require.Len(t, dot, 2)
	assert.InDelta(t, 3.0/7, dot[0].X, 1e-12)
	assert.InDelta(t, 4.0/7, dot[1].X, 1e-12)

	four, ok := Lookup('4')
	require.True(t, ok)
	assert.Equal(t, Glyph{{X: 2.0 / 3, Y: 0}, {X: 2.0 / 3, Y: 1}, {X: 0, Y: 0.5}, {X: 1, Y: 0.5}}, four)

	space, ok := Lookup(' ')
	require.True(t, ok)
	assert.Equal(t, Glyph{{X: 1, Y: 0}}, space)
}

// 闭合字形首尾点必须重合。
func TestZeroIsClosed(t *testing.T) {
	zero, ok := Lookup('0')
	require.True(t, ok)
	assert.Equal(t, zero[0], zero[len(zero)-1])
}

func TestParseStrokesErrors(t *testing.T) {
	_, err := parseStrokes("48")
	assert.Error(t, err)

	_, err = parseStrokes("x 0,0")
	assert.Error(t, err)

	_, err = parseStrokes("48 0;0")
	assert.Error(t, err)

	_, err = parseStrokes("48 1/0,0")
	assert.Error(t, err)

	_, err = parseStrokes("48 0,0\n48 1,1")
	assert.Error(t, err)
}

func TestParseStrokesSkipsComments(t *testing.T) {
	table, err := parseStrokes("# header\n\n65 0,0 1/2,1 1,0\n")
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, Glyph{{0, 0}, {0.5, 1}, {1, 0}}, table['A'])
}
