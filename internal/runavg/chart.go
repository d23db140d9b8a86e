package runavg

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	chartWidth  = 12 * vg.Inch
	chartHeight = 8 * vg.Inch
)

var baselineColors = []color.Color{
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
}

// WriteChart renders stacked AlignX and AlignY panels to a PNG at path.
func WriteChart(ds Dataset, path string) error {
	px, err := panel(ds, "AlignX", func(s Series) []float64 { return s.AlignX })
	if err != nil {
		return err
	}
	py, err := panel(ds, "AlignY", func(s Series) []float64 { return s.AlignY })
	if err != nil {
		return err
	}
	px.X.Label.Text = ""
	py.X.Label.Text = "Time (min.)"

	img := vgimg.New(chartWidth, chartHeight)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: 2,
		Cols: 1,
		PadX: vg.Millimeter,
		PadY: vg.Millimeter * 4,
	}
	plots := [][]*plot.Plot{{px}, {py}}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("runavg: chart dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("runavg: create chart: %w", err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("runavg: write chart: %w", err)
	}
	return f.Close()
}

func panel(ds Dataset, axis string, pick func(Series) []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = axis + " vs Time"
	p.Y.Label.Text = axis
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	for i, b := range ds.Baselines {
		l, err := plotter.NewLine(xys(b.Time, pick(b.Series)))
		if err != nil {
			return nil, fmt.Errorf("runavg: baseline %q: %w", b.Name, err)
		}
		l.Color = baselineColors[i%len(baselineColors)]
		p.Add(l)
		p.Legend.Add(b.Name, l)
	}
	for i, run := range ds.Runs {
		l, err := plotter.NewLine(xys(run.Time, pick(run)))
		if err != nil {
			return nil, fmt.Errorf("runavg: run %d: %w", i+1, err)
		}
		l.Color = faded(plotutil.Color(i))
		p.Add(l)
		p.Legend.Add(fmt.Sprintf("Run %d", i+1), l)
	}
	avg, err := plotter.NewLine(xys(ds.Mean.Time, pick(ds.Mean)))
	if err != nil {
		return nil, fmt.Errorf("runavg: average: %w", err)
	}
	avg.Color = color.Black
	avg.Width = vg.Points(2)
	p.Add(avg)
	p.Legend.Add("Average", avg)
	return p, nil
}

func xys(xs, ys []float64) plotter.XYs {
	out := make(plotter.XYs, len(xs))
	for i := range xs {
		out[i].X = xs[i]
		out[i].Y = ys[i]
	}
	return out
}

func faded(c color.Color) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 0x66}
}
