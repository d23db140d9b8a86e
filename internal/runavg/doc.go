// Package runavg averages aligned-position runs recorded by the
// ellipsometer bench onto a shared time grid.
//
// Ownership boundary:
// - run files are tab-delimited with two header lines and columns
//   time (min), align_x, align_y
// - runs are clipped to a cutoff, resampled by piecewise-linear
//   interpolation, and averaged pointwise
// - named baselines are loaded alongside for comparison and are never part
//   of the average
package runavg
