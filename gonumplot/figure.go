// Package gonumplot adapts gonum.org/v1/plot plots to stash figures, styled
// from the rc settings.
package gonumplot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"figstash/rc"
)

// Figure is a gonum plot with an output size. It implements stash.Saver and
// stash.StreamSaver.
type Figure struct {
	Plot   *plot.Plot
	Width  vg.Length
	Height vg.Length
	DPI    int
	// Format is used when a saved path has no extension.
	Format string

	style  rc.Params
	series int
}

// New returns an empty figure styled from the active rc settings.
func New(title string) (*Figure, error) {
	return NewWithStyle(title, rc.Snapshot())
}

// NewWithStyle returns an empty figure styled from p.
func NewWithStyle(title string, p rc.Params) (*Figure, error) {
	width, err := ParseLength(p["figure.width"])
	if err != nil {
		return nil, err
	}
	height, err := ParseLength(p["figure.height"])
	if err != nil {
		return nil, err
	}
	dpi, err := p.Float("figure.dpi")
	if err != nil || dpi <= 0 {
		return nil, fmt.Errorf("%w: figure.dpi %q", ErrBadStyle, p["figure.dpi"])
	}

	pl := plot.New()
	pl.Title.Text = title
	if err := ApplyStyle(pl, p); err != nil {
		return nil, err
	}
	return &Figure{
		Plot:   pl,
		Width:  width,
		Height: height,
		DPI:    int(dpi),
		Format: p["savefig.format"],
		style:  p,
	}, nil
}

func (f *Figure) nextIndex() int {
	idx := f.series
	f.series++
	return idx
}

// AddLine adds a styled line series with a legend entry.
func (f *Figure) AddLine(name string, xys plotter.XYer) error {
	l, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("line %q: %w", name, err)
	}
	if err := StyleLine(l, f.style, f.nextIndex()); err != nil {
		return err
	}
	f.Plot.Add(l)
	if name != "" {
		f.Plot.Legend.Add(name, l)
	}
	return nil
}

// AddScatter adds a styled scatter series with a legend entry.
func (f *Figure) AddScatter(name string, xys plotter.XYer) error {
	s, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("scatter %q: %w", name, err)
	}
	if err := StyleScatter(s, f.style, f.nextIndex()); err != nil {
		return err
	}
	f.Plot.Add(s)
	if name != "" {
		f.Plot.Legend.Add(name, s)
	}
	return nil
}

// Save writes the figure to path in the format named by its extension.
func (f *Figure) Save(path string) error {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if format == "" {
		format = f.Format
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := f.WriteFigure(out, format); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// WriteFigure renders the figure to w. Raster formats honor DPI.
func (f *Figure) WriteFigure(w io.Writer, format string) error {
	format = strings.ToLower(strings.TrimSpace(format))
	var wt io.WriterTo
	switch format {
	case "png", "jpg", "jpeg", "tif", "tiff":
		c := vgimg.NewWith(vgimg.UseWH(f.Width, f.Height), vgimg.UseDPI(f.DPI))
		f.Plot.Draw(draw.New(c))
		switch format {
		case "png":
			wt = vgimg.PngCanvas{Canvas: c}
		case "jpg", "jpeg":
			wt = vgimg.JpegCanvas{Canvas: c}
		default:
			wt = vgimg.TiffCanvas{Canvas: c}
		}
	default:
		var err error
		wt, err = f.Plot.WriterTo(f.Width, f.Height, format)
		if err != nil {
			return err
		}
	}
	_, err := wt.WriteTo(w)
	return err
}
