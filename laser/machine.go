package laser

import (
	"fmt"
	"strings"
)

// Defaults for a typical 20 W diode engraver running GRBL with $30=1000.
const (
	DefaultMaxPower = 20
	DefaultSMax     = 1000
	ModeDynamic     = "M4"
	ModeConstant    = "M3"
)

// MapPower scales a power in watts onto the controller's S range.
func MapPower(power, factor, maxPower float64) float64 {
	return factor * power / maxPower
}

// Machine describes the limits of the target laser.
type Machine struct {
	MaxPower    float64 `json:"maxPower"`
	SMax        float64 `json:"sMax"`
	MaxVelocity float64 `json:"maxVelocity,omitempty"` // 0 means unlimited
	LaserMode   string  `json:"laserMode"`
}

// DefaultMachine returns the limits used when no profile is given.
func DefaultMachine() Machine {
	return Machine{
		MaxPower:  DefaultMaxPower,
		SMax:      DefaultSMax,
		LaserMode: ModeDynamic,
	}
}

// S returns the S word for the given power.
func (m Machine) S(power float64) float64 {
	return MapPower(power, m.SMax, m.MaxPower)
}

// Validate checks the machine limits themselves.
func (m Machine) Validate() error {
	if m.MaxPower <= 0 {
		return fmt.Errorf("max power %g must be positive", m.MaxPower)
	}
	if m.SMax <= 0 {
		return fmt.Errorf("S max %g must be positive", m.SMax)
	}
	if m.MaxVelocity < 0 {
		return fmt.Errorf("max velocity %g must not be negative", m.MaxVelocity)
	}
	switch strings.ToUpper(m.LaserMode) {
	case ModeDynamic, ModeConstant:
	default:
		return fmt.Errorf("laser mode %q must be M3 or M4", m.LaserMode)
	}
	return nil
}

// Check reports whether le can run on this machine.
func (m Machine) Check(le LE) error {
	if err := le.Validate(); err != nil {
		return err
	}
	if le.Power > m.MaxPower {
		return fmt.Errorf("%w: power %.2f exceeds machine max %.2f", ErrInvalidLE, le.Power, m.MaxPower)
	}
	if m.MaxVelocity > 0 && le.Velocity > m.MaxVelocity {
		return fmt.Errorf("%w: velocity %.1f exceeds machine max %.1f", ErrInvalidLE, le.Velocity, m.MaxVelocity)
	}
	return nil
}
