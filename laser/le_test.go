package laser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLEV(t *testing.T) {
	le := New(10, 1200, 1)
	assert.InDelta(t, 500.0, le.LEV(), 1e-9)

	le.Passes = 3
	assert.InDelta(t, 1500.0, le.LEV(), 1e-9)
}

func TestNewDefaultsToOnePass(t *testing.T) {
	assert.Equal(t, 1, New(5, 1000, 0).Passes)
}

func TestString(t *testing.T) {
	le := New(10, 1200, 2)
	assert.Equal(t, "power: 10.00\tvelocity: 1200.0\tpasses: 2\tLEV: 1000", le.String())
}

func TestValues(t *testing.T) {
	p, v, n := New(7.5, 900, 4).Values()
	assert.Equal(t, 7.5, p)
	assert.Equal(t, 900.0, v)
	assert.Equal(t, 4, n)
}

func TestValidate(t *testing.T) {
	require.NoError(t, New(0, 1, 1).Validate())
	assert.ErrorIs(t, LE{Power: -1, Velocity: 10, Passes: 1}.Validate(), ErrInvalidLE)
	assert.ErrorIs(t, LE{Power: 1, Velocity: 0, Passes: 1}.Validate(), ErrInvalidLE)
	assert.ErrorIs(t, LE{Power: 1, Velocity: 10, Passes: 0}.Validate(), ErrInvalidLE)
}

func TestAddLEV(t *testing.T) {
	base := New(10, 1200, 1)
	up, err := base.AddLEV(50)
	require.NoError(t, err)
	assert.InDelta(t, 11.0, up.Power, 1e-9)
	assert.Equal(t, base.Velocity, up.Velocity)
	assert.InDelta(t, 550.0, up.LEV(), 1e-9)

	_, err = base.AddLEV(-500)
	assert.ErrorIs(t, err, ErrInvalidLE)

	_, err = New(0, 1200, 1).AddLEV(10)
	assert.ErrorIs(t, err, ErrInvalidLE)
}

func TestWithPassesKeepsLEV(t *testing.T) {
	base := New(10, 1200, 1)
	for _, n := range []int{1, 2, 3, 7} {
		got, err := base.WithPasses(n)
		require.NoError(t, err)
		assert.Equal(t, n, got.Passes)
		assert.Equal(t, base.Power, got.Power)
		assert.InDelta(t, base.LEV(), got.LEV(), 1e-9, "passes=%d", n)
	}

	twice := New(10, 1200, 2)
	got, err := twice.WithPasses(4)
	require.NoError(t, err)
	assert.InDelta(t, 2400.0, got.Velocity, 1e-9)

	_, err = base.WithPasses(0)
	assert.ErrorIs(t, err, ErrInvalidLE)
}

func TestRangeValues(t *testing.T) {
	assert.Equal(t, []float64{2, 4, 6, 8, 10}, Range{From: 2, To: 10, Steps: 5}.Values())
	assert.Equal(t, []float64{3}, Range{From: 3, To: 9, Steps: 0}.Values())
	assert.Equal(t, []float64{4}, Single(4).Values())
	assert.Equal(t, []float64{10, 5, 0}, Range{From: 10, To: 0, Steps: 3}.Values())
}

func TestMatrixIsRowMajorByVelocity(t *testing.T) {
	les := Matrix(Range{From: 5, To: 10, Steps: 2}, Range{From: 600, To: 1200, Steps: 2}, 2)
	require.Len(t, les, 4)
	assert.Equal(t, []LE{
		{Power: 5, Velocity: 600, Passes: 2},
		{Power: 10, Velocity: 600, Passes: 2},
		{Power: 5, Velocity: 1200, Passes: 2},
		{Power: 10, Velocity: 1200, Passes: 2},
	}, les)
}
