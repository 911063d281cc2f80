package layout

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ByLCY/lasercal/binding"
	"github.com/ByLCY/lasercal/dsl"
	"github.com/ByLCY/lasercal/laser"
)

// Build 根据任务 AST 生成全部刀路块。data 为 -data 传入的 JSON，
// 可在文字中通过 ${data.xxx} 引用。
func Build(doc *dsl.Document, data any, opts BuildOptions) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("任务为空")
	}
	log := opts.logger()

	machine, err := resolveMachine(doc, opts.machine())
	if err != nil {
		return nil, err
	}
	meta := collectMeta(doc)
	scope := bindingScope(doc.Name, meta, machine, data)

	res := &Result{Name: doc.Name, Meta: meta, Machine: machine}
	counts := map[string]int{}
	for _, section := range doc.Sections {
		var (
			block Block
			err   error
		)
		switch {
		case section.Field != nil:
			block, err = buildFieldSection(section.Field, machine, opts)
		case section.Passes != nil:
			block, err = buildPassesSection(section.Passes, machine, opts)
		case section.Text != nil:
			block, err = buildTextSection(section.Text, machine, scope)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		counts[block.Kind]++
		if block.Name == "" {
			block.Name = fmt.Sprintf("%s-%d", block.Kind, counts[block.Kind])
		}
		log.Debug("生成刀路块",
			zap.String("name", block.Name),
			zap.String("kind", block.Kind),
			zap.Int("ops", len(block.Ops)),
			zap.Float64("width", block.Bounds.Width()),
			zap.Float64("height", block.Bounds.Height()),
		)
		res.Blocks = append(res.Blocks, block)
	}
	if len(res.Blocks) == 0 {
		return nil, fmt.Errorf("任务 %s 中没有 le-field、passes-field 或 text 段落", doc.Name)
	}
	warnOverlaps(res.Blocks, log)
	return res, nil
}

// BuildFieldBlock 生成 LE 网格块并按 origin 平移。
func BuildFieldBlock(name string, f *LEField, lpi float64, origin Point) (Block, error) {
	ops, ext, err := f.Make(lpi)
	if err != nil {
		return Block{}, err
	}
	return newBlock(name, KindLEField, origin, ops, f.LEs, &ext), nil
}

// BuildPassesBlock 生成遍数网格块并按 origin 平移。
func BuildPassesBlock(name string, f *PassesField, lpi float64, origin Point) (Block, error) {
	ops, ext, err := f.Make(lpi)
	if err != nil {
		return Block{}, err
	}
	les, _, err := f.MakeLEList()
	if err != nil {
		return Block{}, err
	}
	return newBlock(name, KindPassesField, origin, ops, les, &ext), nil
}

// BuildTextBlock 生成文字块，text 的左下角位于 origin。
func BuildTextBlock(name string, l *Lettering, text string, origin Point) (Block, error) {
	ops, err := l.WriteString(text, 0, 0)
	if err != nil {
		return Block{}, err
	}
	return newBlock(name, KindText, origin, ops, []laser.LE{l.LE}, nil), nil
}

func newBlock(name, kind string, origin Point, ops []Op, les []laser.LE, ext *Extent) Block {
	ops = TranslateOps(ops, origin.X, origin.Y)
	return Block{
		Name:   name,
		Kind:   kind,
		Origin: origin,
		Bounds: Bounds(ops),
		Extent: ext,
		LEs:    les,
		Ops:    ops,
	}
}

func warnOverlaps(blocks []Block, log *zap.Logger) {
	for i := 0; i < len(blocks); i++ {
		for j := i + 1; j < len(blocks); j++ {
			if blocks[i].Bounds.Overlaps(blocks[j].Bounds) {
				log.Warn("刀路块重叠，请检查 origin",
					zap.String("a", blocks[i].Name),
					zap.String("b", blocks[j].Name),
				)
			}
		}
	}
}

// sectionBody 是一个段落内的赋值与命令。
type sectionBody struct {
	kind     string
	attrs    map[string]*dsl.Assignment
	commands []*dsl.Command
}

func readBody(kind string, block *dsl.Block, allowed ...string) (*sectionBody, error) {
	body := &sectionBody{kind: kind, attrs: map[string]*dsl.Assignment{}}
	if block == nil {
		return body, nil
	}
	known := map[string]bool{}
	for _, k := range allowed {
		known[k] = true
	}
	for _, stmt := range block.Statements {
		switch {
		case stmt.Assignment != nil:
			a := stmt.Assignment
			key := strings.ToLower(a.Key)
			if !known[key] {
				return nil, fmt.Errorf("%s: %s 不支持属性 %q", a.Pos, kind, a.Key)
			}
			if _, dup := body.attrs[key]; dup {
				return nil, fmt.Errorf("%s: %s 重复设置属性 %q", a.Pos, kind, a.Key)
			}
			body.attrs[key] = a
		case stmt.Command != nil:
			body.commands = append(body.commands, stmt.Command)
		}
	}
	return body, nil
}

func (b *sectionBody) str(key string) (string, bool, error) {
	a, ok := b.attrs[key]
	if !ok {
		return "", false, nil
	}
	if a.Value.Array != nil {
		return "", true, fmt.Errorf("%s: %s 应为单个值", a.Pos, key)
	}
	return valueToString(a.Value), true, nil
}

func (b *sectionBody) length(key string, def float64) (float64, error) {
	s, ok, err := b.str(key)
	if err != nil || !ok {
		return def, err
	}
	v, err := ParseLength(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", b.attrs[key].Pos, key, err)
	}
	return v, nil
}

func (b *sectionBody) number(key string, def float64) (float64, error) {
	s, ok, err := b.str(key)
	if err != nil || !ok {
		return def, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %s 应为数字: %q", b.attrs[key].Pos, key, s)
	}
	return v, nil
}

func (b *sectionBody) integer(key string, def int) (int, error) {
	s, ok, err := b.str(key)
	if err != nil || !ok {
		return def, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %s 应为整数: %q", b.attrs[key].Pos, key, s)
	}
	return v, nil
}

func (b *sectionBody) fraction(key string, def float64) (float64, error) {
	s, ok, err := b.str(key)
	if err != nil || !ok {
		return def, err
	}
	v, err := ParseFraction(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", b.attrs[key].Pos, key, err)
	}
	return v, nil
}

func (b *sectionBody) boolean(key string, def bool) (bool, error) {
	s, ok, err := b.str(key)
	if err != nil || !ok {
		return def, err
	}
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true, nil
	case "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("%s: %s 应为 true/false: %q", b.attrs[key].Pos, key, s)
}

// pair 读取形如 [100mm, 60mm] 的二元长度。
func (b *sectionBody) pair(key string, def Point) (Point, error) {
	a, ok := b.attrs[key]
	if !ok {
		return def, nil
	}
	vals := valueToStringSlice(a.Value)
	if len(vals) != 2 {
		return Point{}, fmt.Errorf("%s: %s 需要两个长度，例如 [100mm, 60mm]", a.Pos, key)
	}
	x, err := ParseLength(vals[0])
	if err != nil {
		return Point{}, fmt.Errorf("%s: %s: %w", a.Pos, key, err)
	}
	y, err := ParseLength(vals[1])
	if err != nil {
		return Point{}, fmt.Errorf("%s: %s: %w", a.Pos, key, err)
	}
	return Point{X: x, Y: y}, nil
}

// gridSettings 是 le-field 与 passes-field 共用的属性。
type gridSettings struct {
	origin        Point
	size          Point
	rows, columns int
	padding       float64
	lpi           float64
	overscan      float64
	bidirectional bool
	heading       string
}

var gridAttrs = []string{"origin", "size", "rows", "columns", "padding", "lpi", "overscan", "bidirectional", "heading"}

func readGrid(b *sectionBody, overscan float64, bidirectional bool) (gridSettings, error) {
	var (
		g   gridSettings
		err error
	)
	if g.origin, err = b.pair("origin", Point{}); err != nil {
		return g, err
	}
	if g.size, err = b.pair("size", Point{X: 100, Y: 100}); err != nil {
		return g, err
	}
	if g.rows, err = b.integer("rows", 1); err != nil {
		return g, err
	}
	if g.columns, err = b.integer("columns", 1); err != nil {
		return g, err
	}
	if g.padding, err = b.length("padding", 1); err != nil {
		return g, err
	}
	if g.lpi, err = b.number("lpi", 0); err != nil {
		return g, err
	}
	if g.overscan, err = b.fraction("overscan", overscan); err != nil {
		return g, err
	}
	if g.bidirectional, err = b.boolean("bidirectional", bidirectional); err != nil {
		return g, err
	}
	if g.heading, _, err = b.str("heading"); err != nil {
		return g, err
	}
	return g, nil
}

func buildFieldSection(sec *dsl.FieldSection, machine laser.Machine, opts BuildOptions) (Block, error) {
	body, err := readBody(KindLEField, sec.Block, gridAttrs...)
	if err != nil {
		return Block{}, err
	}
	g, err := readGrid(body, opts.overscan(), false)
	if err != nil {
		return Block{}, err
	}
	field := &LEField{
		Machine:       machine,
		Rows:          g.rows,
		Columns:       g.columns,
		Width:         g.size.X,
		Height:        g.size.Y,
		Padding:       g.padding,
		Overscan:      g.overscan,
		Bidirectional: g.bidirectional,
		Heading:       g.heading,
	}
	for _, cmd := range body.commands {
		switch cmd.Name {
		case "le":
			le, err := parseLE(cmd, machine)
			if err != nil {
				return Block{}, err
			}
			field.LEs = append(field.LEs, le)
		case "matrix":
			les, err := parseMatrix(cmd, machine)
			if err != nil {
				return Block{}, err
			}
			field.LEs = append(field.LEs, les...)
		case "heading-le":
			le, err := parseLE(cmd, machine)
			if err != nil {
				return Block{}, err
			}
			field.HeadingLE = &le
		default:
			return Block{}, fmt.Errorf("%s: le-field 不支持命令 %q", cmd.Pos, cmd.Name)
		}
	}
	block, err := BuildFieldBlock(sec.Name, field, g.lpi, g.origin)
	if err != nil {
		return Block{}, fmt.Errorf("%s: le-field %s: %w", sec.Pos, sec.Name, err)
	}
	return block, nil
}

func buildPassesSection(sec *dsl.PassesSection, machine laser.Machine, opts BuildOptions) (Block, error) {
	body, err := readBody(KindPassesField, sec.Block, append(gridAttrs, "factor", "variance")...)
	if err != nil {
		return Block{}, err
	}
	g, err := readGrid(body, opts.overscan(), true)
	if err != nil {
		return Block{}, err
	}
	factor, err := body.integer("factor", 1)
	if err != nil {
		return Block{}, err
	}
	variance, err := body.fraction("variance", DefaultVariance)
	if err != nil {
		return Block{}, err
	}
	field := &PassesField{
		Machine:       machine,
		Rows:          g.rows,
		Columns:       g.columns,
		Width:         g.size.X,
		Height:        g.size.Y,
		Padding:       g.padding,
		Factor:        factor,
		Variance:      variance,
		Overscan:      g.overscan,
		Bidirectional: g.bidirectional,
		Heading:       g.heading,
	}
	haveBase := false
	for _, cmd := range body.commands {
		if cmd.Name != "base" {
			return Block{}, fmt.Errorf("%s: passes-field 不支持命令 %q", cmd.Pos, cmd.Name)
		}
		if haveBase {
			return Block{}, fmt.Errorf("%s: passes-field 只能有一个 base", cmd.Pos)
		}
		if field.Base, err = parseLE(cmd, machine); err != nil {
			return Block{}, err
		}
		haveBase = true
	}
	if !haveBase {
		return Block{}, fmt.Errorf("%s: passes-field %s 缺少 base 命令", sec.Pos, sec.Name)
	}
	block, err := BuildPassesBlock(sec.Name, field, g.lpi, g.origin)
	if err != nil {
		return Block{}, fmt.Errorf("%s: passes-field %s: %w", sec.Pos, sec.Name, err)
	}
	return block, nil
}

func buildTextSection(sec *dsl.TextSection, machine laser.Machine, scope map[string]any) (Block, error) {
	body, err := readBody(KindText, sec.Block, "origin", "height", "width", "spacing")
	if err != nil {
		return Block{}, err
	}
	origin, err := body.pair("origin", Point{})
	if err != nil {
		return Block{}, err
	}
	height, err := body.length("height", DefaultGlyphHeight)
	if err != nil {
		return Block{}, err
	}
	width, err := body.length("width", height/2)
	if err != nil {
		return Block{}, err
	}
	spacing, err := body.length("spacing", DefaultGlyphSpacing)
	if err != nil {
		return Block{}, err
	}
	var le *laser.LE
	for _, cmd := range body.commands {
		if cmd.Name != "le" || le != nil {
			return Block{}, fmt.Errorf("%s: text 只支持一个 le 命令", cmd.Pos)
		}
		v, err := parseLE(cmd, machine)
		if err != nil {
			return Block{}, err
		}
		le = &v
	}
	if le == nil {
		return Block{}, fmt.Errorf("%s: text %s 缺少 le 命令", sec.Pos, sec.Name)
	}
	content, err := binding.Strict(string(sec.Content), scope)
	if err != nil {
		return Block{}, fmt.Errorf("%s: text %s: %w", sec.Pos, sec.Name, err)
	}
	block, err := BuildTextBlock(sec.Name, NewLettering(*le, machine, height, width, spacing), content, origin)
	if err != nil {
		return Block{}, fmt.Errorf("%s: text %s: %w", sec.Pos, sec.Name, err)
	}
	return block, nil
}

// parseLE 解析 "<功率> <速度> [遍数]"。
func parseLE(cmd *dsl.Command, machine laser.Machine) (laser.LE, error) {
	if len(cmd.Args) < 2 || len(cmd.Args) > 3 {
		return laser.LE{}, fmt.Errorf("%s: %s 需要 <功率> <速度> [遍数]", cmd.Pos, cmd.Name)
	}
	power, err := ParsePower(cmd.Args[0].Value, machine.MaxPower)
	if err != nil {
		return laser.LE{}, fmt.Errorf("%s: %s 功率: %w", cmd.Pos, cmd.Name, err)
	}
	velocity, err := ParseSpeed(cmd.Args[1].Value)
	if err != nil {
		return laser.LE{}, fmt.Errorf("%s: %s 速度: %w", cmd.Pos, cmd.Name, err)
	}
	passes := 1
	if len(cmd.Args) == 3 {
		if passes, err = strconv.Atoi(cmd.Args[2].Value); err != nil || passes < 1 {
			return laser.LE{}, fmt.Errorf("%s: %s 遍数应为正整数: %q", cmd.Pos, cmd.Name, cmd.Args[2].Value)
		}
	}
	return laser.New(power, velocity, passes), nil
}

// parseMatrix 解析 "matrix power <起> <止> <步数> velocity <起> <止> <步数> [passes <n>]"。
func parseMatrix(cmd *dsl.Command, machine laser.Machine) ([]laser.LE, error) {
	var (
		powers, velocities laser.Range
		havePower, haveVel bool
		passes             = 1
	)
	args := cmd.Args
	for i := 0; i < len(args); {
		key := strings.ToLower(args[i].Value)
		switch key {
		case "power", "velocity":
			if i+3 >= len(args) {
				return nil, fmt.Errorf("%s: matrix %s 需要 <起> <止> <步数>", cmd.Pos, key)
			}
			r, err := parseRange(args[i+1].Value, args[i+2].Value, args[i+3].Value, key, machine)
			if err != nil {
				return nil, fmt.Errorf("%s: matrix %s: %w", cmd.Pos, key, err)
			}
			if key == "power" {
				powers, havePower = r, true
			} else {
				velocities, haveVel = r, true
			}
			i += 4
		case "passes":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s: matrix passes 缺少数值", cmd.Pos)
			}
			n, err := strconv.Atoi(args[i+1].Value)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("%s: matrix passes 应为正整数: %q", cmd.Pos, args[i+1].Value)
			}
			passes = n
			i += 2
		default:
			return nil, fmt.Errorf("%s: matrix 不支持参数 %q", cmd.Pos, args[i].Value)
		}
	}
	if !havePower || !haveVel {
		return nil, fmt.Errorf("%s: matrix 需要同时声明 power 与 velocity", cmd.Pos)
	}
	return laser.Matrix(powers, velocities, passes), nil
}

func parseRange(from, to, steps, kind string, machine laser.Machine) (laser.Range, error) {
	parse := ParseSpeed
	if kind == "power" {
		parse = func(s string) (float64, error) { return ParsePower(s, machine.MaxPower) }
	}
	lo, err := parse(from)
	if err != nil {
		return laser.Range{}, err
	}
	hi, err := parse(to)
	if err != nil {
		return laser.Range{}, err
	}
	n, err := strconv.Atoi(steps)
	if err != nil || n < 1 {
		return laser.Range{}, fmt.Errorf("步数应为正整数: %q", steps)
	}
	return laser.Range{From: lo, To: hi, Steps: n}, nil
}

// resolveMachine 用任务中的 machine 段落覆盖配置文件中的机器参数。
func resolveMachine(doc *dsl.Document, base laser.Machine) (laser.Machine, error) {
	m := base
	for _, section := range doc.Sections {
		if section.Machine == nil {
			continue
		}
		body, err := readBody("machine", section.Machine.Block, "max-power", "s-max", "max-velocity", "laser-mode")
		if err != nil {
			return m, err
		}
		if s, ok, err := body.str("max-power"); err != nil {
			return m, err
		} else if ok {
			if m.MaxPower, err = ParsePower(s, 0); err != nil {
				return m, fmt.Errorf("max-power: %w", err)
			}
		}
		if m.SMax, err = body.number("s-max", m.SMax); err != nil {
			return m, err
		}
		if s, ok, err := body.str("max-velocity"); err != nil {
			return m, err
		} else if ok {
			if m.MaxVelocity, err = ParseSpeed(s); err != nil {
				return m, fmt.Errorf("max-velocity: %w", err)
			}
		}
		if s, ok, err := body.str("laser-mode"); err != nil {
			return m, err
		} else if ok {
			m.LaserMode = strings.ToUpper(s)
		}
	}
	if err := m.Validate(); err != nil {
		return m, fmt.Errorf("machine: %w", err)
	}
	return m, nil
}

func collectMeta(doc *dsl.Document) JobMeta {
	var meta JobMeta
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			key := strings.ToLower(stmt.Assignment.Key)
			value := strings.Join(valueToStringSlice(stmt.Assignment.Value), ", ")
			if key == "title" {
				meta.Title = value
				continue
			}
			meta.Entries = append(meta.Entries, MetaEntry{Key: key, Value: value})
		}
	}
	return meta
}

// bindingScope 构造文字插值可见的数据。
func bindingScope(name string, meta JobMeta, machine laser.Machine, data any) map[string]any {
	metaMap := map[string]string{"title": meta.Title}
	for _, e := range meta.Entries {
		metaMap[e.Key] = e.Value
	}
	return map[string]any{
		"job":  name,
		"meta": metaMap,
		"machine": map[string]float64{
			"max_power":    machine.MaxPower,
			"s_max":        machine.SMax,
			"max_velocity": machine.MaxVelocity,
		},
		"data": data,
	}
}

func valueToString(val *dsl.Value) string {
	if val == nil {
		return ""
	}
	switch {
	case val.String != nil:
		return string(*val.String)
	case val.Number != nil:
		return *val.Number
	case val.Ident != nil:
		return *val.Ident
	default:
		return ""
	}
}

func valueToStringSlice(val *dsl.Value) []string {
	if val == nil {
		return nil
	}
	if val.Array != nil {
		out := make([]string, 0, len(val.Array.Values))
		for _, item := range val.Array.Values {
			if s := valueToString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := valueToString(val); s != "" {
		return []string{s}
	}
	return nil
}
