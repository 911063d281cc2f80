package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// This file defines unit-aware quantities used by job files: lengths, feed
// rates, laser power and fractions.

// Unit records the unit a value was written in.
type Unit int

const (
	UnitNone     Unit = iota // unit-less numbers
	UnitMM                   // millimeters
	UnitCM                   // centimeters
	UnitIN                   // inches
	UnitMMPerMin             // feed in mm/min
	UnitMMPerSec             // feed in mm/s
	UnitWatt                 // absolute laser power
	UnitPercent              // percentage (of max power, or a plain fraction)
)

// MmPerInch converts inches to millimeters; also used for LPI.
const MmPerInch = 25.4

// UnitToString returns the suffix for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitMMPerMin:
		return "mm/min"
	case UnitMMPerSec:
		return "mm/s"
	case UnitWatt:
		return "W"
	case UnitPercent:
		return "%"
	default:
		return ""
	}
}

// Quantity preserves a numeric value with its unit.
type Quantity struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// suffixes 的顺序很重要："mm/min" 必须先于 "mm" 匹配。
var suffixes = []struct {
	s string
	u Unit
}{
	{"mm/min", UnitMMPerMin},
	{"mm/s", UnitMMPerSec},
	{"mm", UnitMM},
	{"cm", UnitCM},
	{"in", UnitIN},
	{"w", UnitWatt},
	{"%", UnitPercent},
}

// ParseQuantity parses a job file number preserving its unit.
func ParseQuantity(value string) (Quantity, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return Quantity{}, fmt.Errorf("数值为空")
	}
	lower := strings.ToLower(v)
	unit := UnitNone
	num := lower
	for _, suf := range suffixes {
		if strings.HasSuffix(lower, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(lower, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Quantity{}, fmt.Errorf("无法解析数值 %q", value)
	}
	return Quantity{Value: f, Unit: unit}, nil
}

// ToMM converts a length to millimeters. Unit-less values are millimeters.
func (q Quantity) ToMM() (float64, error) {
	switch q.Unit {
	case UnitMM, UnitNone:
		return q.Value, nil
	case UnitCM:
		return q.Value * 10, nil
	case UnitIN:
		return q.Value * MmPerInch, nil
	default:
		return 0, fmt.Errorf("单位 %s 不是长度", UnitToString(q.Unit))
	}
}

// ToMMPerMin converts a feed rate to mm/min. Unit-less values are mm/min.
func (q Quantity) ToMMPerMin() (float64, error) {
	switch q.Unit {
	case UnitMMPerMin, UnitNone:
		return q.Value, nil
	case UnitMMPerSec:
		return q.Value * 60, nil
	default:
		return 0, fmt.Errorf("单位 %s 不是速度", UnitToString(q.Unit))
	}
}

// ToWatts converts a power to watts; percentages are relative to maxPower.
func (q Quantity) ToWatts(maxPower float64) (float64, error) {
	switch q.Unit {
	case UnitWatt, UnitNone:
		return q.Value, nil
	case UnitPercent:
		return maxPower * q.Value / 100, nil
	default:
		return 0, fmt.Errorf("单位 %s 不是功率", UnitToString(q.Unit))
	}
}

// ToFraction returns percentages divided by 100 and plain numbers as-is.
func (q Quantity) ToFraction() (float64, error) {
	switch q.Unit {
	case UnitNone:
		return q.Value, nil
	case UnitPercent:
		return q.Value / 100, nil
	default:
		return 0, fmt.Errorf("单位 %s 不是比例", UnitToString(q.Unit))
	}
}

// ParseLength parses a length string into millimeters.
func ParseLength(value string) (float64, error) {
	q, err := ParseQuantity(value)
	if err != nil {
		return 0, err
	}
	return q.ToMM()
}

// ParseSpeed parses a feed rate string into mm/min.
func ParseSpeed(value string) (float64, error) {
	q, err := ParseQuantity(value)
	if err != nil {
		return 0, err
	}
	return q.ToMMPerMin()
}

// ParsePower parses a power string into watts.
func ParsePower(value string, maxPower float64) (float64, error) {
	q, err := ParseQuantity(value)
	if err != nil {
		return 0, err
	}
	return q.ToWatts(maxPower)
}

// ParseFraction parses "10%" or "0.1".
func ParseFraction(value string) (float64, error) {
	q, err := ParseQuantity(value)
	if err != nil {
		return 0, err
	}
	return q.ToFraction()
}

// FormatNumber formats v with at most precision decimals, trimming trailing
// zeros and the decimal point. -0 is written as 0.
func FormatNumber(v float64, precision int) string {
	s := strconv.FormatFloat(v, 'f', precision, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}
