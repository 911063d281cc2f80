package layout

import (
	"math"
	"testing"
)

// TestParseLength 覆盖常见长度单位到 mm 的换算。
func TestParseLength(t *testing.T) {
	cases := map[string]float64{
		"10":     10,
		"10mm":   10,
		"2.54cm": 25.4,
		"1in":    25.4,
		"-2.5mm": -2.5,
		" 3 mm ": 3,
	}
	for in, want := range cases {
		got, err := ParseLength(in)
		if err != nil {
			t.Fatalf("%q 解析失败: %v", in, err)
		}
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("%q 转 mm 期望 %g，实际 %g", in, want, got)
		}
	}
	if _, err := ParseLength("10W"); err == nil {
		t.Fatalf("10W 不应被当作长度")
	}
	if _, err := ParseLength("abc"); err == nil {
		t.Fatalf("abc 应解析失败")
	}
}

// TestParseSpeed 验证 mm/s 与 mm/min 的换算，确保 mm/min 不会被误识别为 mm。
func TestParseSpeed(t *testing.T) {
	got, err := ParseSpeed("1500mm/min")
	if err != nil || got != 1500 {
		t.Fatalf("1500mm/min 期望 1500，实际 %g (%v)", got, err)
	}
	got, err = ParseSpeed("25mm/s")
	if err != nil || got != 1500 {
		t.Fatalf("25mm/s 期望 1500，实际 %g (%v)", got, err)
	}
	got, err = ParseSpeed("900")
	if err != nil || got != 900 {
		t.Fatalf("900 期望 900，实际 %g (%v)", got, err)
	}
	if _, err := ParseSpeed("5mm"); err == nil {
		t.Fatalf("5mm 不应被当作速度")
	}
}

// TestParsePower 验证百分比功率相对于机器最大功率换算。
func TestParsePower(t *testing.T) {
	got, err := ParsePower("25%", 20)
	if err != nil || got != 5 {
		t.Fatalf("25%% 期望 5W，实际 %g (%v)", got, err)
	}
	got, err = ParsePower("7.5W", 20)
	if err != nil || got != 7.5 {
		t.Fatalf("7.5W 期望 7.5，实际 %g (%v)", got, err)
	}
	got, err = ParsePower("3", 20)
	if err != nil || got != 3 {
		t.Fatalf("3 期望 3，实际 %g (%v)", got, err)
	}
}

func TestParseFraction(t *testing.T) {
	got, err := ParseFraction("10%")
	if err != nil || math.Abs(got-0.1) > 1e-12 {
		t.Fatalf("10%% 期望 0.1，实际 %g (%v)", got, err)
	}
	got, err = ParseFraction("0.05")
	if err != nil || got != 0.05 {
		t.Fatalf("0.05 期望 0.05，实际 %g (%v)", got, err)
	}
	if _, err := ParseFraction("1mm"); err == nil {
		t.Fatalf("1mm 不应被当作比例")
	}
}

// TestFormatNumber 覆盖精度、末尾 0 与 -0 的处理。
func TestFormatNumber(t *testing.T) {
	cases := []struct {
		in   float64
		prec int
		want string
	}{
		{10, 3, "10"},
		{0.1 + 0.2, 3, "0.3"},
		{2.5, 3, "2.5"},
		{-0.0001, 3, "0"},
		{1234.5678, 2, "1234.57"},
		{100, 0, "100"},
		{2.6, 0, "3"},
	}
	for _, tc := range cases {
		if got := FormatNumber(tc.in, tc.prec); got != tc.want {
			t.Errorf("FormatNumber(%g, %d) = %q，期望 %q", tc.in, tc.prec, got, tc.want)
		}
	}
}
