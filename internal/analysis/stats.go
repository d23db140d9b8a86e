package analysis

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultThresholdMM is the coverage radius used by the lab reports.
const DefaultThresholdMM = 0.04

// Point is a position in millimeters.
type Point struct {
	X float64
	Y float64
}

// PositionMM converts a channel voltage into millimeters using the
// detector's voltage-ratio transform.
func PositionMM(v, sum float64) float64 {
	return 10 * (v - 5) / (2 * sum)
}

// Report summarizes distance from the level center across a run.
type Report struct {
	Samples         int
	Skipped         int
	Center          Point
	Mean            float64
	Std             float64
	Max             float64
	Threshold       float64
	Within          int
	Coverage        float64
	DurationMinutes float64
}

// Result carries the per-row series behind a Report for charting.
type Result struct {
	Report    Report
	Elapsed   []float64
	Positions []Point
	Aligned   []Point
	Distances []float64
}

// Analyze computes positions, the level center, and distance statistics.
// Std is the sample standard deviation and is NaN for a single sample.
func Analyze(samples []Sample, threshold float64) (Result, error) {
	n := len(samples)
	if n == 0 {
		return Result{}, ErrNoSamples
	}
	if threshold <= 0 {
		threshold = DefaultThresholdMM
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	cxs := make([]float64, n)
	cys := make([]float64, n)
	elapsed := make([]float64, n)
	start := samples[0].Time
	for i, s := range samples {
		xs[i] = PositionMM(s.VoltageX, s.VoltageS)
		ys[i] = PositionMM(s.VoltageY, s.VoltageS)
		cxs[i] = PositionMM(s.LevelX, s.VoltageS)
		cys[i] = PositionMM(s.LevelY, s.VoltageS)
		elapsed[i] = s.Time.Sub(start).Minutes()
	}
	center := Point{X: stat.Mean(cxs, nil), Y: stat.Mean(cys, nil)}

	positions := make([]Point, n)
	aligned := make([]Point, n)
	dist := make([]float64, n)
	within := 0
	for i := range xs {
		positions[i] = Point{X: xs[i], Y: ys[i]}
		aligned[i] = Point{X: xs[i] - center.X, Y: ys[i] - center.Y}
		dist[i] = math.Hypot(aligned[i].X, aligned[i].Y)
		if dist[i] <= threshold {
			within++
		}
	}

	return Result{
		Report: Report{
			Samples:         n,
			Center:          center,
			Mean:            stat.Mean(dist, nil),
			Std:             stat.StdDev(dist, nil),
			Max:             floats.Max(dist),
			Threshold:       threshold,
			Within:          within,
			Coverage:        float64(within) / float64(n),
			DurationMinutes: elapsed[n-1],
		},
		Elapsed:   elapsed,
		Positions: positions,
		Aligned:   aligned,
		Distances: dist,
	}, nil
}

// WriteText prints the report in the layout the lab notes use.
func (r Report) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"samples:        %d (skipped %d)\n"+
			"duration:       %.2f min\n"+
			"center:         (%.5f, %.5f) mm\n"+
			"mean distance:  %.5f mm\n"+
			"std distance:   %.5f mm\n"+
			"max distance:   %.5f mm\n"+
			"within %.3f mm: %d/%d (%.2f%%)\n",
		r.Samples, r.Skipped,
		r.DurationMinutes,
		r.Center.X, r.Center.Y,
		r.Mean, r.Std, r.Max,
		r.Threshold, r.Within, r.Samples, 100*r.Coverage,
	)
	return err
}
