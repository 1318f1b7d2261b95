package scanner

import "sort"

// madScale makes the median absolute deviation comparable to a
// normal-distribution standard deviation.
const madScale = 1.4826

// Median returns the median of values. ok is false for an empty input.
func Median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2, true
	}
	return sorted[mid], true
}

// MedianMAD returns the median and the scaled median absolute deviation of
// values. Billing distributions are heavy-tailed; a handful of very large
// providers would inflate a mean/std baseline and mask moderate abusers, so
// outlier tests run against these robust statistics instead.
//
// ok is false when the input is empty or the MAD is zero (no dispersion, e.g.
// fewer than two distinct values). Callers must then treat the statistic as
// undefined and skip outlier testing for that population.
func MedianMAD(values []float64) (median, scaledMAD float64, ok bool) {
	median, ok = Median(values)
	if !ok {
		return 0, 0, false
	}

	deviations := make([]float64, len(values))
	for i, v := range values {
		d := v - median
		if d < 0 {
			d = -d
		}
		deviations[i] = d
	}

	mad, _ := Median(deviations)
	if mad == 0 {
		return median, 0, false
	}
	return median, mad * madScale, true
}
