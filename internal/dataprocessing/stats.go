package dataprocessing

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// SeriesStats summarises one contributor's yearly values.
type SeriesStats struct {
	StdDev float64
	Mean   float64
	Median float64
}

// Describe returns the sample standard deviation (n-1), mean and median of
// xs. A single observation has zero deviation.
func Describe(xs []float64) SeriesStats {
	if len(xs) == 0 {
		return SeriesStats{}
	}

	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) < 2 || math.IsNaN(std) {
		std = 0
	}
	return SeriesStats{StdDev: std, Mean: mean, Median: median(xs)}
}

// median averages the two middle values for even lengths; gonum's
// stat.Quantile picks one of them instead.
func median(xs []float64) float64 {
	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
