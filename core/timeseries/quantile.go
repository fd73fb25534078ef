package timeseries

import (
	"fmt"
	"math"
	"sort"
)

// Quantile returns the deterministic series of pointwise q-quantiles over
// samples. A deterministic receiver yields a copy of itself.
func (ts *TimeSeries) Quantile(q float64) (*TimeSeries, error) {
	if q < 0 || q > 1 || math.IsNaN(q) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuantile, q)
	}
	out := ts.empty(ts.start, ts.length, ts.width, 1, ts.Components())
	buf := make([]float64, ts.samples)
	for t := 0; t < ts.length; t++ {
		for c := 0; c < ts.width; c++ {
			o := ts.offset(t, c, 0)
			copy(buf, ts.values[o:o+ts.samples])
			sort.Float64s(buf)
			out.values[out.offset(t, c, 0)] = QuantileSorted(buf, q)
		}
	}
	return out, nil
}

// Median is shorthand for Quantile(0.5).
func (ts *TimeSeries) Median() *TimeSeries {
	m, _ := ts.Quantile(0.5)
	return m
}

// QuantileSorted computes the q-quantile of sorted data with linear
// interpolation between closest ranks, position (n-1)*q.
func QuantileSorted(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * q
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
