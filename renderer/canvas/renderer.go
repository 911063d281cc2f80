package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"math"
	"strings"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/ByLCY/lasercal/layout"
	"github.com/ByLCY/lasercal/renderer"
)

// Format selects the preview output.
type Format string

const (
	FormatPDF Format = "pdf"
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

const (
	defaultMargin    = 5.0
	defaultBeamWidth = 0.2
	defaultDPMM      = 10.0
)

// Options configures the preview renderer. Lengths are in millimeters.
type Options struct {
	Format     Format
	Margin     float64 // blank border around the toolpaths
	BeamWidth  float64 // stroke width of burn moves
	DPMM       float64 // PNG resolution in dots per millimeter
	ShowTravel bool    // draw G0 and S0 moves as dashed lines
	ShowBounds bool    // outline each block's bounding box
}

// Renderer draws toolpaths via github.com/tdewolff/canvas so a job can be
// checked before it is sent to the laser.
type Renderer struct {
	opts Options
}

var _ renderer.Renderer = (*Renderer)(nil)

// NewRenderer creates a preview renderer, filling zero options with defaults.
func NewRenderer(opts Options) *Renderer {
	if opts.Format == "" {
		opts.Format = FormatPDF
	}
	opts.Format = Format(strings.ToLower(string(opts.Format)))
	if opts.Margin <= 0 {
		opts.Margin = defaultMargin
	}
	if opts.BeamWidth <= 0 {
		opts.BeamWidth = defaultBeamWidth
	}
	if opts.DPMM <= 0 {
		opts.DPMM = defaultDPMM
	}
	return &Renderer{opts: opts}
}

// ParseFormat validates a format name, eg. from a file extension.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(s, ".")))
	switch f {
	case FormatPDF, FormatSVG, FormatPNG:
		return f, nil
	}
	return "", fmt.Errorf("不支持的预览格式 %q（可选 pdf、svg、png）", s)
}

// Render draws every block onto one page sized to the union of block bounds.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if _, err := ParseFormat(string(r.opts.Format)); err != nil {
		return nil, err
	}
	bounds := layout.EmptyRect()
	for _, b := range result.Blocks {
		bounds = bounds.Union(b.Bounds)
	}
	if bounds.Empty() {
		return nil, fmt.Errorf("任务 %s 没有可预览的刀路", result.Name)
	}

	m := r.opts.Margin
	width := bounds.Width() + 2*m
	height := bounds.Height() + 2*m
	c := canvas.New(width, height)
	ctx := canvas.NewContext(c)

	ctx.SetFillColor(canvas.White)
	ctx.SetStrokeColor(canvas.Transparent)
	ctx.DrawPath(0, 0, canvas.Rectangle(width, height))

	ox, oy := m-bounds.MinX, m-bounds.MinY
	if r.opts.ShowBounds {
		r.drawBounds(ctx, result.Blocks, ox, oy)
	}
	r.drawToolpaths(ctx, result, ox, oy)

	return r.encode(c, result, width, height)
}

func (r *Renderer) encode(c *canvas.Canvas, result *layout.Result, width, height float64) ([]byte, error) {
	var buf bytes.Buffer
	switch r.opts.Format {
	case FormatPDF:
		writer := pdf.New(&buf, width, height, nil)
		writer.SetInfo(result.Meta.Title, result.Name, "laser calibration", "", "lasercal")
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("写入 PDF 失败: %w", err)
		}
	case FormatSVG:
		writer := svg.New(&buf, width, height, nil)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("写入 SVG 失败: %w", err)
		}
	case FormatPNG:
		img := rasterizer.Draw(c, canvas.DPMM(r.opts.DPMM), canvas.DefaultColorSpace)
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("写入 PNG 失败: %w", err)
		}
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawBounds(ctx *canvas.Context, blocks []layout.Block, ox, oy float64) {
	ctx.SetFillColor(canvas.Transparent)
	ctx.SetStrokeColor(canvas.RGBA(0.85, 0.85, 0.85, 1))
	ctx.SetStrokeWidth(r.opts.BeamWidth / 2)
	for _, b := range blocks {
		if b.Bounds.Empty() {
			continue
		}
		ctx.DrawPath(b.Bounds.MinX+ox, b.Bounds.MinY+oy, canvas.Rectangle(b.Bounds.Width(), b.Bounds.Height()))
	}
}

// segment is one straight move, already offset into page coordinates.
type segment struct {
	x0, y0, x1, y1 float64
	burn           bool
	level          float64 // S / SMax, clamped to [0, 1]
}

// stroke groups consecutive segments drawn with the same style into one path.
type stroke struct {
	path  *canvas.Path
	burn  bool
	level float64
	x, y  float64
}

func (r *Renderer) drawToolpaths(ctx *canvas.Context, result *layout.Result, ox, oy float64) {
	var cur *stroke
	flush := func() {
		if cur == nil || cur.path.Empty() {
			cur = nil
			return
		}
		if cur.burn {
			ctx.SetDashes(0)
			ctx.SetStrokeColor(burnColor(cur.level))
			ctx.SetStrokeWidth(r.opts.BeamWidth)
		} else {
			ctx.SetDashes(0, 0.5, 0.5)
			ctx.SetStrokeColor(canvas.RGBA(0.2, 0.45, 0.9, 0.6))
			ctx.SetStrokeWidth(r.opts.BeamWidth / 2)
		}
		ctx.SetFillColor(canvas.Transparent)
		ctx.DrawPath(0, 0, cur.path)
		ctx.SetDashes(0)
		cur = nil
	}

	smax := result.Machine.SMax
	if smax <= 0 {
		smax = 1
	}
	for _, seg := range replay(result.Blocks, smax) {
		if !seg.burn && !r.opts.ShowTravel {
			flush()
			continue
		}
		x0, y0, x1, y1 := seg.x0+ox, seg.y0+oy, seg.x1+ox, seg.y1+oy
		if cur != nil && (cur.burn != seg.burn || cur.level != seg.level) {
			flush()
		}
		if cur == nil {
			cur = &stroke{path: &canvas.Path{}, burn: seg.burn, level: seg.level}
			cur.path.MoveTo(x0, y0)
		} else if cur.x != x0 || cur.y != y0 {
			cur.path.MoveTo(x0, y0)
		}
		cur.path.LineTo(x1, y1)
		cur.x, cur.y = x1, y1
	}
	flush()
}

// replay walks the ops of all blocks in order, keeping S and F modal across
// blocks the way the controller does. The move from the unknown start position
// to the first coordinate is skipped.
func replay(blocks []layout.Block, smax float64) []segment {
	var (
		out     []segment
		x, y, s float64
		started bool
	)
	for _, b := range blocks {
		for _, op := range b.Ops {
			if op.Kind == layout.OpComment {
				continue
			}
			if op.Has(layout.WordS) {
				s = op.S
			}
			nx, ny := x, y
			if op.Has(layout.WordX) {
				nx = op.X
			}
			if op.Has(layout.WordY) {
				ny = op.Y
			}
			if started && (nx != x || ny != y) {
				burn := op.Kind == layout.OpLinear && s > 0
				level := 0.0
				if burn {
					level = math.Min(math.Max(s/smax, 0), 1)
				}
				out = append(out, segment{x0: x, y0: y, x1: nx, y1: ny, burn: burn, level: level})
			}
			x, y = nx, ny
			started = true
		}
	}
	return out
}

// burnColor maps power to gray: full power is black, low power light gray.
func burnColor(level float64) color.RGBA {
	v := 0.8 * (1 - level)
	return canvas.RGBA(v, v, v, 1)
}
