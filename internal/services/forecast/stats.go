package forecast

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/domain/models"
)

// percentile computes the p-th percentile (p in [0,100]) with linear
// interpolation between closest ranks: h = (n-1)*p/100, interpolated
// between the floor(h)-th and ceil(h)-th order statistics.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	h := float64(len(sorted)-1) * p / 100
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if lo < 0 {
		return sorted[0]
	}
	if hi >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

// meanOf is the arithmetic mean, 0 for an empty slice.
func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// stddevOf is the sample standard deviation (n-1 denominator),
// 0 when fewer than two values.
func stddevOf(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// describe summarizes a series the way operations reports expect:
// count, mean, sample std, min, quartiles, max.
func describe(values []float64) models.DescriptiveStats {
	if len(values) == 0 {
		return models.DescriptiveStats{}
	}
	return models.DescriptiveStats{
		Count: float64(len(values)),
		Mean:  meanOf(values),
		Std:   stddevOf(values),
		Min:   floats.Min(values),
		P25:   percentile(values, 25),
		P50:   percentile(values, 50),
		P75:   percentile(values, 75),
		Max:   floats.Max(values),
	}
}

// roundToInt rounds half away from zero and converts to int.
func roundToInt(v float64) int {
	return int(math.Round(v))
}

// clampCount converts a raw model output into a non-negative integer count.
func clampCount(v float64) int {
	n := roundToInt(v)
	if n < 0 {
		return 0
	}
	return n
}
