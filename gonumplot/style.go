package gonumplot

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"figstash/rc"
)

// ErrBadStyle wraps style values that cannot be interpreted.
var ErrBadStyle = errors.New("invalid style value")

var lengthUnits = []struct {
	suffix string
	unit   vg.Length
}{
	{"in", vg.Inch},
	{"cm", vg.Centimeter},
	{"mm", vg.Millimeter},
	{"pt", 1},
}

// ParseLength reads lengths such as 4in, 10cm, 90mm or 12pt. A bare number is
// in points.
func ParseLength(s string) (vg.Length, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	unit := vg.Length(1)
	for _, u := range lengthUnits {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			unit = u.unit
			break
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: length %q", ErrBadStyle, s)
	}
	return vg.Length(v) * unit, nil
}

var namedColors = map[string]color.NRGBA{
	"black": {0, 0, 0, 255},
	"white": {255, 255, 255, 255},
	"red":   {255, 0, 0, 255},
	"green": {0, 128, 0, 255},
	"blue":  {0, 0, 255, 255},
	"gray":  {128, 128, 128, 255},
	"grey":  {128, 128, 128, 255},
}

// ParseColor reads #rgb, #rrggbb, #rrggbbaa or a basic color name.
func ParseColor(s string) (color.Color, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return nil, fmt.Errorf("%w: color %q", ErrBadStyle, s)
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return nil, fmt.Errorf("%w: color %q", ErrBadStyle, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: color %q", ErrBadStyle, s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Marker returns the glyph for a scatter.marker name.
func Marker(name string) (draw.GlyphDrawer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "circle":
		return draw.CircleGlyph{}, nil
	case "ring":
		return draw.RingGlyph{}, nil
	case "square":
		return draw.SquareGlyph{}, nil
	case "box":
		return draw.BoxGlyph{}, nil
	case "triangle":
		return draw.TriangleGlyph{}, nil
	case "cross":
		return draw.CrossGlyph{}, nil
	case "plus":
		return draw.PlusGlyph{}, nil
	}
	return nil, fmt.Errorf("%w: marker %q", ErrBadStyle, name)
}

// Dashes returns the dash pattern for a lines.style name.
func Dashes(style string) ([]vg.Length, error) {
	switch strings.ToLower(strings.TrimSpace(style)) {
	case "", "solid":
		return nil, nil
	case "dashed":
		return []vg.Length{vg.Points(6), vg.Points(3)}, nil
	case "dotted":
		return []vg.Length{vg.Points(1), vg.Points(2)}, nil
	case "dashdot":
		return []vg.Length{vg.Points(6), vg.Points(2), vg.Points(1), vg.Points(2)}, nil
	}
	return nil, fmt.Errorf("%w: line style %q", ErrBadStyle, style)
}

// CycleColor returns the idx-th color of axes.prop_cycle, or lines.color when
// the cycle is empty.
func CycleColor(p rc.Params, idx int) (color.Color, error) {
	cycle := p.List("axes.prop_cycle")
	if len(cycle) == 0 {
		return ParseColor(p["lines.color"])
	}
	return ParseColor(cycle[idx%len(cycle)])
}

func points(p rc.Params, key string) (vg.Length, error) {
	v, err := p.Float(key)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrBadStyle, err)
	}
	return vg.Points(v), nil
}

// ApplyStyle sets the title, axis labels, legend and grid of pl from p.
func ApplyStyle(pl *plot.Plot, p rc.Params) error {
	var errs []error
	if size, err := points(p, "axes.title.size"); err == nil {
		pl.Title.TextStyle.Font.Size = size
	} else {
		errs = append(errs, err)
	}
	if size, err := points(p, "axes.label.size"); err == nil {
		pl.X.Label.TextStyle.Font.Size = size
		pl.Y.Label.TextStyle.Font.Size = size
	} else {
		errs = append(errs, err)
	}
	if size, err := points(p, "font.size"); err == nil {
		pl.X.Tick.Label.Font.Size = size
		pl.Y.Tick.Label.Font.Size = size
	} else {
		errs = append(errs, err)
	}
	if size, err := points(p, "legend.font.size"); err == nil {
		pl.Legend.TextStyle.Font.Size = size
	} else {
		errs = append(errs, err)
	}
	if text := p["axes.x.label.text"]; text != "" {
		pl.X.Label.Text = text
	}
	if text := p["axes.y.label.text"]; text != "" {
		pl.Y.Label.Text = text
	}

	switch pos := p["legend.position"]; pos {
	case "top-right", "":
		pl.Legend.Top, pl.Legend.Left = true, false
	case "top-left":
		pl.Legend.Top, pl.Legend.Left = true, true
	case "bottom-right":
		pl.Legend.Top, pl.Legend.Left = false, false
	case "bottom-left":
		pl.Legend.Top, pl.Legend.Left = false, true
	default:
		errs = append(errs, fmt.Errorf("%w: legend position %q", ErrBadStyle, pos))
	}

	grid, err := p.Bool("axes.grid")
	if err != nil {
		errs = append(errs, fmt.Errorf("%w: %s", ErrBadStyle, err))
	} else if grid {
		pl.Add(plotter.NewGrid())
	}
	return errors.Join(errs...)
}

// StyleLine applies line settings; idx selects the prop_cycle color.
func StyleLine(l *plotter.Line, p rc.Params, idx int) error {
	var errs []error
	if c, err := CycleColor(p, idx); err == nil {
		l.LineStyle.Color = c
	} else {
		errs = append(errs, err)
	}
	if w, err := points(p, "lines.width"); err == nil {
		l.LineStyle.Width = w
	} else {
		errs = append(errs, err)
	}
	if d, err := Dashes(p["lines.style"]); err == nil {
		l.LineStyle.Dashes = d
	} else {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// StyleScatter applies scatter settings; idx selects the prop_cycle color.
func StyleScatter(s *plotter.Scatter, p rc.Params, idx int) error {
	var errs []error
	if c, err := CycleColor(p, idx); err == nil {
		s.GlyphStyle.Color = c
	} else {
		errs = append(errs, err)
	}
	if r, err := points(p, "scatter.radius"); err == nil {
		s.GlyphStyle.Radius = r
	} else {
		errs = append(errs, err)
	}
	if m, err := Marker(p["scatter.marker"]); err == nil {
		s.GlyphStyle.Shape = m
	} else {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
