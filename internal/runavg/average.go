package runavg

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// Clip keeps rows with Time <= cutoff.
func Clip(s Series, cutoff float64) Series {
	var out Series
	for i, t := range s.Time {
		if t > cutoff {
			continue
		}
		out.Time = append(out.Time, t)
		out.AlignX = append(out.AlignX, s.AlignX[i])
		out.AlignY = append(out.AlignY, s.AlignY[i])
	}
	return out
}

// Grid returns points evenly spaced values over [0, cutoff].
func Grid(cutoff float64, points int) ([]float64, error) {
	if points < 2 || cutoff <= 0 {
		return nil, fmt.Errorf("%w: cutoff=%v points=%d", ErrInvalidGrid, cutoff, points)
	}
	return floats.Span(make([]float64, points), 0, cutoff), nil
}

// Resample evaluates ys(xs) at each grid value by piecewise-linear
// interpolation. Values beyond the sampled range take the nearest end
// value. Duplicate xs keep the first sample.
func Resample(xs, ys, grid []float64) ([]float64, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("runavg: resample: %d xs for %d ys", len(xs), len(ys))
	}
	if len(xs) == 0 {
		return nil, ErrTooFewPoints
	}

	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })
	sx := make([]float64, 0, len(xs))
	sy := make([]float64, 0, len(ys))
	for _, i := range idx {
		if n := len(sx); n > 0 && sx[n-1] == xs[i] {
			continue
		}
		sx = append(sx, xs[i])
		sy = append(sy, ys[i])
	}

	out := make([]float64, len(grid))
	if len(sx) == 1 {
		for i := range out {
			out[i] = sy[0]
		}
		return out, nil
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(sx, sy); err != nil {
		return nil, fmt.Errorf("runavg: resample: %w", err)
	}
	for i, x := range grid {
		out[i] = pl.Predict(x)
	}
	return out, nil
}

// Averaged holds runs resampled onto a shared grid and their pointwise
// mean.
type Averaged struct {
	Grid []float64
	Runs []Series
	Mean Series
}

// Average clips each run to cutoff, resamples it onto a grid of points
// values over [0, cutoff], and averages the runs pointwise.
func Average(runs []Series, cutoff float64, points int) (Averaged, error) {
	if len(runs) == 0 {
		return Averaged{}, ErrNoRuns
	}
	grid, err := Grid(cutoff, points)
	if err != nil {
		return Averaged{}, err
	}

	res := Averaged{
		Grid: grid,
		Runs: make([]Series, 0, len(runs)),
		Mean: Series{
			Time:   grid,
			AlignX: make([]float64, points),
			AlignY: make([]float64, points),
		},
	}
	for i, run := range runs {
		c := Clip(run, cutoff)
		x, err := Resample(c.Time, c.AlignX, grid)
		if err != nil {
			return Averaged{}, fmt.Errorf("run %d align_x: %w", i+1, err)
		}
		y, err := Resample(c.Time, c.AlignY, grid)
		if err != nil {
			return Averaged{}, fmt.Errorf("run %d align_y: %w", i+1, err)
		}
		floats.Add(res.Mean.AlignX, x)
		floats.Add(res.Mean.AlignY, y)
		res.Runs = append(res.Runs, Series{Time: grid, AlignX: x, AlignY: y})
	}
	n := 1 / float64(len(runs))
	floats.Scale(n, res.Mean.AlignX)
	floats.Scale(n, res.Mean.AlignY)
	return res, nil
}
