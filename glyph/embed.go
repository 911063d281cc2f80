package glyph

import (
	_ "embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

//go:embed strokes.txt
var strokeTable string

var glyphs = mustParse(strokeTable)

// Point 以字宽/字高的比例表示笔画顶点，(0,0) 为左下角。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Glyph 是一条连续的单线笔画。
type Glyph []Point

// Lookup 返回字符对应的笔画；不支持的字符返回 false。
func Lookup(r rune) (Glyph, bool) {
	g, ok := glyphs[r]
	return g, ok
}

// Supported 判断字符是否可雕刻。
func Supported(r rune) bool {
	_, ok := glyphs[r]
	return ok
}

// Runes 按码点顺序返回全部可雕刻字符。
func Runes() []rune {
	out := make([]rune, 0, len(glyphs))
	for r := range glyphs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func mustParse(src string) map[rune]Glyph {
	table, err := parseStrokes(src)
	if err != nil {
		panic(fmt.Sprintf("glyph: 内置字形表无效: %v", err))
	}
	return table
}

// parseStrokes 解析字形表文本，# 开头为注释。
func parseStrokes(src string) (map[rune]Glyph, error) {
	table := map[rune]Glyph{}
	for n, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("第 %d 行缺少笔画坐标", n+1)
		}
		code, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("第 %d 行码点 %q 无效: %w", n+1, fields[0], err)
		}
		r := rune(code)
		if _, dup := table[r]; dup {
			return nil, fmt.Errorf("第 %d 行重复定义码点 %d", n+1, code)
		}
		g := make(Glyph, 0, len(fields)-1)
		for _, field := range fields[1:] {
			pt, err := parsePoint(field)
			if err != nil {
				return nil, fmt.Errorf("第 %d 行: %w", n+1, err)
			}
			g = append(g, pt)
		}
		table[r] = g
	}
	return table, nil
}

func parsePoint(s string) (Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, fmt.Errorf("坐标 %q 缺少逗号", s)
	}
	x, err := parseFraction(xs)
	if err != nil {
		return Point{}, err
	}
	y, err := parseFraction(ys)
	if err != nil {
		return Point{}, err
	}
	return Point{X: x, Y: y}, nil
}

// parseFraction 支持 "1"、"0.5" 与 "3/7" 三种写法。
func parseFraction(s string) (float64, error) {
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("数值 %q 无效", s)
	}
	if !ok {
		return n, nil
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("分数 %q 无效", s)
	}
	return n / d, nil
}
