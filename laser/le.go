// Package laser holds the exposure arithmetic shared by every calibration
// pattern: laser exposure settings (LE), their laser exposure value (LEV) and
// the mapping from watts to the controller's S word.
package laser

import (
	"errors"
	"fmt"
)

// UnitFactor converts power/velocity (W per mm/min) into J/m.
const UnitFactor = 1000 * 60

// ErrInvalidLE is returned for settings no laser can run.
var ErrInvalidLE = errors.New("invalid laser exposure")

// LE is one laser exposure setting. Power is in watts, Velocity in mm/min.
type LE struct {
	Power    float64 `json:"power"`
	Velocity float64 `json:"velocity"`
	Passes   int     `json:"passes"`
}

// New returns an LE, treating passes below 1 as a single pass.
func New(power, velocity float64, passes int) LE {
	if passes < 1 {
		passes = 1
	}
	return LE{Power: power, Velocity: velocity, Passes: passes}
}

// LEV is the energy deposited per unit length over all passes.
func (le LE) LEV() float64 {
	return float64(le.Passes) * UnitFactor * le.Power / le.Velocity
}

// Values returns power, velocity and passes in that order.
func (le LE) Values() (float64, float64, int) {
	return le.Power, le.Velocity, le.Passes
}

func (le LE) String() string {
	return fmt.Sprintf("power: %.2f\tvelocity: %.1f\tpasses: %d\tLEV: %.0f",
		le.Power, le.Velocity, le.Passes, le.LEV())
}

// Validate rejects negative power, non-positive velocity and zero passes.
func (le LE) Validate() error {
	switch {
	case le.Power < 0:
		return fmt.Errorf("%w: power %g is negative", ErrInvalidLE, le.Power)
	case le.Velocity <= 0:
		return fmt.Errorf("%w: velocity %g must be positive", ErrInvalidLE, le.Velocity)
	case le.Passes < 1:
		return fmt.Errorf("%w: passes %d must be at least 1", ErrInvalidLE, le.Passes)
	}
	return nil
}

// AddLEV returns a setting whose LEV is shifted by delta. Velocity and passes
// are kept; power scales with the LEV.
func (le LE) AddLEV(delta float64) (LE, error) {
	base := le.LEV()
	if base == 0 {
		return LE{}, fmt.Errorf("%w: cannot shift LEV of a zero-power setting", ErrInvalidLE)
	}
	target := base + delta
	if target <= 0 {
		return LE{}, fmt.Errorf("%w: LEV %.0f%+.0f is not positive", ErrInvalidLE, base, delta)
	}
	out := le
	out.Power = le.Power * target / base
	return out, nil
}

// WithPasses returns a setting with n passes and the same LEV. Power is kept;
// velocity scales with the pass count.
func (le LE) WithPasses(n int) (LE, error) {
	if n < 1 {
		return LE{}, fmt.Errorf("%w: passes %d must be at least 1", ErrInvalidLE, n)
	}
	if le.Passes < 1 {
		return LE{}, fmt.Errorf("%w: passes %d must be at least 1", ErrInvalidLE, le.Passes)
	}
	out := le
	out.Velocity = le.Velocity * float64(n) / float64(le.Passes)
	out.Passes = n
	return out, nil
}

// Range is an inclusive, evenly spaced parameter sweep.
type Range struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Steps int     `json:"steps"`
}

// Single is a range holding one value.
func Single(v float64) Range { return Range{From: v, To: v, Steps: 1} }

// Values expands the range. Steps <= 1 yields only From.
func (r Range) Values() []float64 {
	if r.Steps <= 1 {
		return []float64{r.From}
	}
	out := make([]float64, r.Steps)
	step := (r.To - r.From) / float64(r.Steps-1)
	for i := range out {
		out[i] = r.From + step*float64(i)
	}
	out[len(out)-1] = r.To
	return out
}

// Matrix lays out one row per velocity and one column per power.
func Matrix(powers, velocities Range, passes int) []LE {
	ps := powers.Values()
	vs := velocities.Values()
	out := make([]LE, 0, len(ps)*len(vs))
	for _, v := range vs {
		for _, p := range ps {
			out = append(out, New(p, v, passes))
		}
	}
	return out
}
