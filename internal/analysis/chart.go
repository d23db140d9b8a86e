package analysis

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	DefaultBins = 50

	chartWidth  = 8 * vg.Inch
	chartHeight = 5 * vg.Inch
)

var (
	colorMean      = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	colorStd       = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
	colorThreshold = color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}
	colorMax       = color.RGBA{R: 0x94, G: 0x67, B: 0xbd, A: 0xff}
	colorSeries    = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	dashed         = []vg.Length{vg.Points(4), vg.Points(3)}
)

// Chart file names written under the plot directory.
const (
	HistogramFile = "distance_histogram.png"
	AlignedXFile  = "aligned_x.png"
	AlignedYFile  = "aligned_y.png"
	PositionFile  = "position_2d.png"
)

// WriteCharts renders the distance histogram, the aligned X and Y series
// against elapsed minutes, and the 2-D position scatter. It returns the
// written paths.
func WriteCharts(res Result, dir string, bins int) ([]string, error) {
	if len(res.Distances) == 0 {
		return nil, ErrNoSamples
	}
	if bins <= 0 {
		bins = DefaultBins
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("analysis: plot dir: %w", err)
	}

	type job struct {
		name  string
		build func() (*plot.Plot, error)
	}
	jobs := []job{
		{HistogramFile, func() (*plot.Plot, error) { return histogram(res, bins) }},
		{AlignedXFile, func() (*plot.Plot, error) { return alignedSeries(res, "X", func(p Point) float64 { return p.X }) }},
		{AlignedYFile, func() (*plot.Plot, error) { return alignedSeries(res, "Y", func(p Point) float64 { return p.Y }) }},
		{PositionFile, func() (*plot.Plot, error) { return positions(res) }},
	}

	paths := make([]string, 0, len(jobs))
	for _, j := range jobs {
		p, err := j.build()
		if err != nil {
			return paths, fmt.Errorf("analysis: build %s: %w", j.name, err)
		}
		path := filepath.Join(dir, j.name)
		if err := p.Save(chartWidth, chartHeight, path); err != nil {
			return paths, fmt.Errorf("analysis: save %s: %w", j.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func histogram(res Result, bins int) (*plot.Plot, error) {
	rep := res.Report
	p := plot.New()
	p.Title.Text = "Distance from level center"
	p.X.Label.Text = "distance (mm)"
	p.Y.Label.Text = "samples"

	h, err := plotter.NewHist(plotter.Values(res.Distances), bins)
	if err != nil {
		return nil, err
	}
	h.FillColor = colorSeries
	p.Add(h)

	top := 0.0
	for _, b := range h.Bins {
		top = max(top, b.Weight)
	}
	marks := []struct {
		label string
		x     float64
		c     color.Color
		dash  bool
	}{
		{fmt.Sprintf("mean %.4f", rep.Mean), rep.Mean, colorMean, false},
		{fmt.Sprintf("+1 std %.4f", rep.Mean+rep.Std), rep.Mean + rep.Std, colorStd, true},
		{fmt.Sprintf("-1 std %.4f", rep.Mean-rep.Std), rep.Mean - rep.Std, colorStd, true},
		{fmt.Sprintf("threshold %.2f", rep.Threshold), rep.Threshold, colorThreshold, true},
		{fmt.Sprintf("max %.4f", rep.Max), rep.Max, colorMax, false},
	}
	for _, m := range marks {
		// std is NaN for a single sample
		if math.IsNaN(m.x) {
			continue
		}
		l, err := plotter.NewLine(plotter.XYs{{X: m.x, Y: 0}, {X: m.x, Y: top}})
		if err != nil {
			return nil, err
		}
		l.Color = m.c
		if m.dash {
			l.Dashes = dashed
		}
		p.Add(l)
		p.Legend.Add(m.label, l)
	}
	p.Legend.Top = true
	p.Legend.Padding = vg.Points(5)
	return p, nil
}

func alignedSeries(res Result, axis string, pick func(Point) float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Aligned %s position over time", axis)
	p.X.Label.Text = "elapsed (min)"
	p.Y.Label.Text = fmt.Sprintf("%s (mm)", axis)

	xys := make(plotter.XYs, len(res.Aligned))
	for i, pt := range res.Aligned {
		xys[i].X = res.Elapsed[i]
		xys[i].Y = pick(pt)
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	line.Color = colorSeries
	p.Add(plotter.NewGrid(), line)
	return p, nil
}

func positions(res Result) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Position"
	p.X.Label.Text = "X (mm)"
	p.Y.Label.Text = "Y (mm)"

	xys := make(plotter.XYs, len(res.Positions))
	for i, pt := range res.Positions {
		xys[i].X = pt.X
		xys[i].Y = pt.Y
	}
	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, err
	}
	sc.GlyphStyle.Color = colorSeries
	sc.GlyphStyle.Radius = vg.Points(1.5)

	c := res.Report.Center
	center, err := plotter.NewScatter(plotter.XYs{{X: c.X, Y: c.Y}})
	if err != nil {
		return nil, err
	}
	center.GlyphStyle.Color = colorMean
	center.GlyphStyle.Shape = draw.CrossGlyph{}
	center.GlyphStyle.Radius = vg.Points(6)

	p.Add(plotter.NewGrid(), sc, center)
	p.Legend.Add("samples", sc)
	p.Legend.Add(fmt.Sprintf("center (%.4f, %.4f)", c.X, c.Y), center)
	return p, nil
}
